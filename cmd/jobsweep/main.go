package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A .env next to the config is optional; real environment variables win.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
