package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	EnvConfigDir = "DEPLOYTPL_CONFIG_DIR"
	EnvDataDir   = "DEPLOYTPL_DATA_DIR"
	EnvHome      = "HOME"
)

const (
	// AppDirName is the directory name under each XDG base directory
	AppDirName = "deploytpl"

	// TemplatesDir is the data subdirectory holding user templates
	TemplatesDir = "templates"

	// LogFileName is the name of the log file
	LogFileName = "deploytpl.log"

	// StylesFileName holds optional terminal style overrides in the config
	// directory
	StylesFileName = "styles.yaml"
)

// ConfigFileNames are looked up in the config directory, in order.
var ConfigFileNames = []string{"config.toml", "config.yaml", "config.yml"}

// Paths exposes the user directories.
type Paths interface {
	ConfigDir() string
	DataDir() string
	StateDir() string
	TemplatesDir() string
	LogFilePath() string
	DefaultConfigFiles() []string
}

type paths struct {
	configDir string
	dataDir   string
	stateDir  string
}

// New resolves the directories from the environment.
func New() Paths {
	p := &paths{}

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = ExpandHome(dir)
	} else {
		p.configDir = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if dir := os.Getenv(EnvDataDir); dir != "" {
		p.dataDir = ExpandHome(dir)
	} else {
		p.dataDir = filepath.Join(xdg.DataHome, AppDirName)
	}

	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		p.stateDir = filepath.Join(dir, AppDirName)
	} else {
		p.stateDir = filepath.Join(xdg.StateHome, AppDirName)
	}
	return p
}

func (p *paths) ConfigDir() string { return p.configDir }

func (p *paths) DataDir() string { return p.dataDir }

func (p *paths) StateDir() string { return p.stateDir }

// TemplatesDir is searched after the configured template search path.
func (p *paths) TemplatesDir() string {
	return filepath.Join(p.dataDir, TemplatesDir)
}

func (p *paths) LogFilePath() string {
	return filepath.Join(p.stateDir, LogFileName)
}

// DefaultConfigFiles returns the first config file that exists in the config
// directory, or nothing.
func (p *paths) DefaultConfigFiles() []string {
	for _, name := range ConfigFileNames {
		path := filepath.Join(p.configDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return []string{path}
		}
	}
	return nil
}

// ExpandHome expands a leading ~ to the home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}
	// ~user is left alone
	return path
}
