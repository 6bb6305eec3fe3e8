// Package main provides the entry point for the regmetal CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/regmetal/cmd/regmetal/commands"
	"github.com/Sumatoshi-tech/regmetal/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := commands.NewRootCommand()

	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *commands.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
