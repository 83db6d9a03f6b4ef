package config

import (
	_ "embed"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed embedded/defaults.toml
var defaultsTOML []byte

// SampleHeader opens the file written by GenerateConfigContent.
const SampleHeader = "# deploytpl configuration\n#\n# Uncomment a setting to change it from its built-in default.\n"

// DefaultsContent returns the embedded defaults file.
func DefaultsContent() string {
	return string(defaultsTOML)
}

// defaultsProvider feeds the embedded defaults to koanf.
type defaultsProvider struct{ data []byte }

func (p defaultsProvider) ReadBytes() ([]byte, error) { return p.data, nil }

func (p defaultsProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := toml.Unmarshal(p.data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateConfigContent returns a config file listing every default with its
// documentation, each setting commented out.
func GenerateConfigContent() string {
	var b strings.Builder
	b.WriteString(SampleHeader)

	body := strings.TrimPrefix(DefaultsContent(), strings.SplitAfterN(DefaultsContent(), "\n", 2)[0])
	for _, line := range strings.SplitAfter(body, "\n") {
		b.WriteString(commentSetting(line))
	}
	return b.String()
}

// commentSetting prefixes settings and table headers with "# "; comments and
// blank lines pass through.
func commentSetting(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line
	}
	return "# " + line
}
