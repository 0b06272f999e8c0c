package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"syzygy-tms/internal/adapters/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
