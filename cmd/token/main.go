// Command token mints a bearer token for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vytor/studyflash/internal/auth"
	"github.com/vytor/studyflash/internal/config"
)

func main() {
	userID := flag.Int64("user", 1, "user id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if len(cfg.JWTSecret) < 16 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set (at least 16 characters)")
		os.Exit(1)
	}

	tok, err := auth.NewIssuer(cfg.JWTSecret).Issue(*userID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
