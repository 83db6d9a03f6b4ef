package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/arthur-debert/deploytpl/cmd/deploytpl"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/output"
)

func main() {
	rootCmd := deploytpl.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		errorStyle := output.StyleRegistry[output.StyleError].Renderer(lipgloss.NewRenderer(os.Stderr))
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(errors.ExitCode(err))
	}
}
