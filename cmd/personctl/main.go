/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// personctl manages persons in a PersonStore backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// PERSONSTORE_* settings may come from a .env file next to the binary.
	_ = godotenv.Load()

	r := NewRunner(RunnerOpts{})
	if err := r.command().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "personctl: %v\n", err)
		os.Exit(exitCode(err))
	}
}
