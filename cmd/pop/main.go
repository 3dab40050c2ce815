package main

import (
	"os"

	"popclient/cmd/pop/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
