package main

import (
	"os"

	"github.com/yucheng-lin/twscan/cmd/twscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
