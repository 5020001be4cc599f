package main

import (
	"os"

	"github.com/hookwise/hookwise/cmd/hookwise/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
