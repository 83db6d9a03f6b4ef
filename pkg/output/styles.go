package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// Semantic style names usable with the style template function.
const (
	StyleHeader  = "Header"
	StyleSuccess = "Success"
	StyleError   = "Error"
	StyleWarning = "Warning"
	StylePath    = "Path"
	StyleMuted   = "Muted"
)

// StyleDef is one style in a styles file.
type StyleDef struct {
	Bold       bool     `yaml:"bold,omitempty"`
	Italic     bool     `yaml:"italic,omitempty"`
	Foreground ColorDef `yaml:"foreground,omitempty"`
}

// ColorDef is an adaptive color for light and dark terminals.
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleRegistry maps semantic names to lipgloss styles.
var StyleRegistry = map[string]lipgloss.Style{
	StyleHeader: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F9FAFB"}).
		Bold(true),
	StyleSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}).
		Bold(true),
	StyleError: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}).
		Bold(true),
	StyleWarning: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}).
		Bold(true),
	StylePath: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#93C5FD"}).
		Italic(true),
	StyleMuted: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
}

// LoadStylesFromFile overrides entries of StyleRegistry with the styles
// defined in a YAML file.
func LoadStylesFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read styles %s", path).
			WithDetail("path", path)
	}

	var defs map[string]StyleDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to parse styles %s", path).
			WithDetail("path", path)
	}

	for name, def := range defs {
		s := lipgloss.NewStyle().Bold(def.Bold).Italic(def.Italic)
		if def.Foreground.Light != "" || def.Foreground.Dark != "" {
			s = s.Foreground(lipgloss.AdaptiveColor{Light: def.Foreground.Light, Dark: def.Foreground.Dark})
		}
		StyleRegistry[name] = s
	}
	return nil
}
