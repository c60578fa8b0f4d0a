// Package main provides the leapsite command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsite/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
