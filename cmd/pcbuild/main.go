package main

import (
	"os"

	"pcbuilder/cmd/pcbuild/commands"
)

// Version information - set during build
var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
