package deploytpl

import (
	"os"
	"strings"
	"text/template"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// stylingEnabled reports whether help output may carry ANSI styling.
func stylingEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// usageFuncs returns the template helpers used by MsgUsageTemplate. With
// styling disabled they only change case.
func usageFuncs(styled bool) template.FuncMap {
	heading := func(s string) string {
		if !styled {
			return s
		}
		return pterm.Bold.Sprint(s)
	}
	return template.FuncMap{
		"bold":      heading,
		"boldUpper": func(s string) string { return heading(strings.ToUpper(s)) },
	}
}

func initTemplateFormatting() {
	cobra.AddTemplateFuncs(usageFuncs(stylingEnabled()))
}
