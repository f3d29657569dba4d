package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Secrets usually arrive through a local .env in development.
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}

	var root = &cobra.Command{Use: "researcher"}

	root.AddCommand(serveCMD(), runCMD())
	_ = root.Execute()
}
