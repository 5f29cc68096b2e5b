// Package main is the vortex terminal client.
package main

import (
	"os"

	"vortextau-chat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
