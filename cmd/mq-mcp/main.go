package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// GEMINI_API_KEY and MQMCP_* overrides may live in a .env file
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
