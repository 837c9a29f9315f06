package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/md-rashed-zaman/agenda/libs/auth"
	"github.com/md-rashed-zaman/agenda/libs/config"
	"github.com/md-rashed-zaman/agenda/libs/runtime"
)

// Usage: scheduling-token <subject> [role]
// Prints a bearer token for the dashboard signed with AUTH_JWT_SECRET.
func main() {
	_ = config.LoadDotenv()
	logger := runtime.NewLogger("scheduling-token")
	fail := func(msg string, err error) {
		logger.Error(msg, "err", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fail("usage", errors.New("scheduling-token <subject> [role]"))
	}
	role := "owner"
	if len(os.Args) >= 3 {
		role = os.Args[2]
	}
	secret, err := config.RequiredString("AUTH_JWT_SECRET")
	if err != nil {
		fail("config", err)
	}
	ttl, err := config.Duration("AUTH_TOKEN_TTL", 30*24*time.Hour)
	if err != nil {
		fail("config", err)
	}

	token, err := auth.Issue(os.Args[1], role, secret, ttl, time.Now())
	if err != nil {
		fail("issue token", err)
	}
	// stdout carries only the token so it can be captured by scripts.
	fmt.Println(token)
}
