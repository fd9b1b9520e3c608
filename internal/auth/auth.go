// Package auth provides the bearer-token middlewares of the blog list service:
// ExtractToken pulls the raw token out of the Authorization header and
// ResolveUser verifies it and loads the acting user. It also issues the
// stateless session tokens handed out at login.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/logger"
	"github.com/patric-chuzhbe/bloglist/internal/metrics"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

const bearerPrefix = "bearer "

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error)
}

// Auth verifies and issues HS256 session tokens.
type Auth struct {
	// db is the interface to the user data storage.
	db userKeeper

	// signingSecretKey is the server-held secret used to sign and verify tokens.
	signingSecretKey []byte

	// tokenTTL is the lifetime of issued tokens. Zero issues tokens without expiry.
	tokenTTL time.Duration

	now func() time.Time
}

// Claims is the payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

const (
	// TokenKey holds the raw bearer token.
	TokenKey ContextKey = "token"

	// PrincipalKey holds the resolved *user.User, which may be nil.
	PrincipalKey ContextKey = "principal"
)

func New(
	db userKeeper,
	signingSecretKey []byte,
	tokenTTL time.Duration,
) *Auth {
	return &Auth{
		db:               db,
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
		now:              time.Now,
	}
}

// ExtractToken requires an Authorization header of the form "Bearer <token>",
// the scheme matched case-insensitively, and stores the token in the request context.
// Anything else is answered with 401 "token missing".
func (a *Auth) ExtractToken(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		authorization := request.Header.Get("Authorization")
		if len(authorization) < len(bearerPrefix) ||
			!strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
			metrics.RecordAuthFailure("token_missing")
			apperrors.Write(response, apperrors.New(apperrors.ErrTokenMissing, "token missing", nil))

			return
		}

		ctx := context.WithValue(request.Context(), TokenKey, authorization[len(bearerPrefix):])
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// ResolveUser verifies the token stored by ExtractToken and attaches the user it names.
// A verified token without an identity, or naming an unknown user, yields a nil principal.
func (a *Auth) ResolveUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString, _ := TokenFromContext(request.Context())

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.ParseToken()`: ", zap.Error(err))
			if errors.Is(err, apperrors.ErrExpiredToken) {
				metrics.RecordAuthFailure("token_expired")
			} else {
				metrics.RecordAuthFailure("token_invalid")
			}
			apperrors.Write(response, err)

			return
		}

		var principal *user.User
		if claims.UserID != "" {
			principal, err = a.db.GetUserByID(request.Context(), claims.UserID, nil)
			if err != nil && !errors.Is(err, models.ErrUserNotFound) {
				logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
				apperrors.Write(response, err)

				return
			}
		}

		ctx := context.WithValue(request.Context(), PrincipalKey, principal)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// ParseToken verifies the signature and the expiry of tokenString.
// Expired tokens fail with apperrors.ErrExpiredToken, any other failure with
// apperrors.ErrInvalidToken carrying the verifier's message.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.New(apperrors.ErrExpiredToken, "token expired", err)
		}
		return nil, apperrors.New(apperrors.ErrInvalidToken, err.Error(), err)
	}
	if !token.Valid {
		return nil, apperrors.New(apperrors.ErrInvalidToken, "invalid token", nil)
	}

	return claims, nil
}

// IssueToken signs a session token for usr.
func (a *Auth) IssueToken(usr *user.User) (string, error) {
	now := a.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID:   usr.ID,
		Username: usr.Username,
	}
	if a.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.tokenTTL))
	}

	return a.buildJWTString(claims)
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// TokenFromContext returns the raw bearer token stored by ExtractToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// PrincipalFromContext returns the user resolved by ResolveUser, or nil.
func PrincipalFromContext(ctx context.Context) *user.User {
	principal, _ := ctx.Value(PrincipalKey).(*user.User)
	return principal
}
