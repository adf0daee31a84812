package main

import (
	"os"

	"github.com/chilam/strongpool/cmd/rps/commands"
)

// main is the entry point for the strongpool CLI:
// go run ./cmd/rps [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
