package main

import (
	"os"

	"github.com/zhouzirui/mindpeers/client/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
