package main

import (
	"os"

	"github.com/curvelab/yieldstress/cmd/yieldstress/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
