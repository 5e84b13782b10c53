package main

import (
	"os"

	"github.com/estensen/roi-dashboard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
