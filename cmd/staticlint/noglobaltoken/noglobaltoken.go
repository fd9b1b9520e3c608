// Package noglobaltoken defines an analyzer that reports package-level
// string variables holding a bearer token.
//
// Credentials kept in package state are shared by every caller of the
// package, so concurrent requests issued under different identities pick up
// each other's token. Pass the token through a session value or a context
// instead.
package noglobaltoken

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "noglobaltoken",
	Doc:  "prohibits package-level string variables named after a token",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.VAR {
				continue
			}

			for _, spec := range genDecl.Specs {
				valueSpec, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, name := range valueSpec.Names {
					if isTokenHolder(pass, name) {
						pass.Reportf(name.Pos(), "package-level variable %s holds a token; pass it through a session or context", name.Name)
					}
				}
			}
		}
	}
	return nil, nil
}

func isTokenHolder(pass *analysis.Pass, name *ast.Ident) bool {
	if name.Name == "_" || !strings.Contains(strings.ToLower(name.Name), "token") {
		return false
	}

	obj := pass.TypesInfo.Defs[name]
	if obj == nil {
		return false
	}

	switch t := obj.Type().Underlying().(type) {
	case *types.Basic:
		return t.Kind() == types.String
	case *types.Pointer:
		basic, ok := t.Elem().Underlying().(*types.Basic)
		return ok && basic.Kind() == types.String
	}

	return false
}
