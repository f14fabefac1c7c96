package main

import (
	"os"

	"github.com/rustyeddy/screener/cmd/screener/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
