package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/ameynaysathe/chai-backend/cmd/internal/app"
)

func main() {
	// A missing .env is fine; the process environment is authoritative.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "chai: load .env: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chai: %v\n", err)
		os.Exit(1)
	}
}
