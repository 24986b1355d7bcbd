package main

import (
	"github.com/joho/godotenv"

	"chunklock/internal/cli"
)

func main() {
	// Best effort: a missing .env simply means overrides come from the
	// real environment.
	_ = godotenv.Load()

	cli.Execute()
}
