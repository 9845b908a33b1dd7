package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/krishna-ananth-vk/potholed/internal/app"
)

func main() {
	// A .env file is optional; real environments set variables directly
	_ = godotenv.Load()

	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "potholed: %v\n", err)
		os.Exit(1)
	}
}
