// Command bloglist serves the blog list API.
//
// Configuration comes from a JSON file (-c or CONFIG), a .env file, the
// environment and the command line; see internal/config. SECRET is required.
package main

import (
	"log"

	"github.com/patric-chuzhbe/bloglist/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("unable to start: %v", err)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
