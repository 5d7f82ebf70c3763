package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"horse.fit/newsdesk/internal/auth"
)

// runHashToken prints a bcrypt hash for ADMIN_TOKEN_HASH. Without --token a
// random token is generated and printed once.
func runHashToken(args []string) int {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	token := fs.String("token", "", "Token to hash (generated when empty)")
	fromStdin := fs.Bool("stdin", false, "Read the token from stdin")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	value := strings.TrimSpace(*token)
	if *fromStdin {
		raw, err := io.ReadAll(io.LimitReader(os.Stdin, 4096))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			return 1
		}
		value = strings.TrimSpace(string(raw))
	}

	generated := false
	if value == "" {
		var err error
		value, err = auth.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
			return 1
		}
		generated = true
	}

	hash, err := auth.HashToken(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash token: %v\n", err)
		return 1
	}
	if generated {
		fmt.Printf("token=%s\n", value)
	}
	fmt.Printf("ADMIN_TOKEN_HASH='%s'\n", hash)
	return 0
}
