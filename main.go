package main

import (
	"os"

	"github.com/matheuscscp/world-net/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
