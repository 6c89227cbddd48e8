// Package main is the kgvasc CLI entrypoint.
package main

import (
	"os"

	"github.com/kg-vasc/kgvasc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
