package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/logger"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hash-code prints the bcrypt hash of an admin access code, ready to be put
// into ADMIN_CODE_HASH.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	fmt.Fprintln(os.Stderr, "=== Hash Admin Access Code ===")

	fmt.Fprint(os.Stderr, "Enter Access Code: ")
	code, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read access code")
	}
	if len(code) < 6 {
		fmt.Fprintln(os.Stderr, "Error: Access code must be at least 6 characters")
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Confirm Access Code: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read access code")
	}
	if string(code) != string(confirm) {
		fmt.Fprintln(os.Stderr, "Error: Access codes do not match")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword(code, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash access code")
	}

	// Only the hash goes to stdout so it can be piped into an env file.
	fmt.Println(string(hash))
}
