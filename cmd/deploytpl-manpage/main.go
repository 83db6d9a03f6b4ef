// Command deploytpl-manpage writes the deploytpl man page to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/deploytpl/cmd/deploytpl"
	"github.com/arthur-debert/deploytpl/internal/version"
)

func main() {
	rootCmd := deploytpl.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "DEPLOYTPL",
		Section: "1",
		Source:  "deploytpl " + version.Version,
		Manual:  "deploytpl manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
