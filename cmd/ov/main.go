package main

import (
	"os"

	"objvault/cmd/ov/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
