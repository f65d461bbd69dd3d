// Package main provides the reetl command.
package main

import (
	"os"

	"github.com/leapstack-labs/reetl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
