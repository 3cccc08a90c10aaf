package main

import (
	"os"

	"github.com/causeway-lang/causeway/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
