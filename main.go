package main

import (
	"os"

	"github.com/shipkit-io/shipkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
