// Package main is the entry point for the formlayout CLI.
package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-formlayout/internal/cli"
	"github.com/goliatone/go-formlayout/internal/prompt"
)

// Version is injected at build time.
var Version = "dev"

func main() {
	root := cli.NewRootCmd(prompt.NewSurvey())
	root.Version = Version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
