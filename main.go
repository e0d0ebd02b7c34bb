package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/leadgate/leadgate/internal/cli"
)

func main() {
	// Optional .env for local development; deployments set real env vars.
	_ = godotenv.Load()

	cli.InitCLI()
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
