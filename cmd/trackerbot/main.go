package main

import (
	"os"

	"github.com/user/thread-tracker/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
