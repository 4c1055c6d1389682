// Package main provides the tabql command.
package main

import (
	"os"

	"github.com/nao1215/tabql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
