// Package logging configures the zerolog global logger for deploytpl and hands
// out component loggers. Console output goes to stderr so that rendered
// templates on stdout stay clean; every run is also appended to a log file
// under the XDG state directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arthur-debert/deploytpl/pkg/paths"
)

// Options tunes Setup. The zero value logs warnings to stderr and to the
// default log file.
type Options struct {
	Verbosity int
	// Console defaults to os.Stderr.
	Console io.Writer
	// LogFile defaults to the state directory log. "-" disables the file.
	LogFile string
	NoColor bool
}

// LevelFor maps the number of -v flags to a level.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

// SetupLogger configures the global logger for verbosity with the default
// outputs.
func SetupLogger(verbosity int) {
	Setup(Options{Verbosity: verbosity, NoColor: os.Getenv("NO_COLOR") != ""})
}

// Setup replaces the global logger. It returns the log file path in use, empty
// when only the console is written.
func Setup(opts Options) string {
	zerolog.SetGlobalLevel(LevelFor(opts.Verbosity))

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	}}

	logFile := opts.LogFile
	if logFile == "" {
		logFile = paths.New().LogFilePath()
	}
	var fileErr error
	if logFile != "-" {
		var f *os.File
		f, fileErr = openLogFile(logFile)
		if fileErr == nil {
			writers = append(writers, f)
		}
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).With().Timestamp()
	if opts.Verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", logFile).Msg("Failed to open log file, logging to console only")
		logFile = ""
	}
	if logFile == "-" {
		logFile = ""
	}
	log.Debug().Int("verbosity", opts.Verbosity).Str("logFile", logFile).Msg("Logger initialized")
	return logFile
}

// GetLogger returns a logger tagged with component.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForDeployment returns a component logger carrying the host and, when set,
// the service being generated.
func ForDeployment(component, host, service string) zerolog.Logger {
	ctx := log.With().Str("component", component).Str("host", host)
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// Timed logs the start of operation at debug level and returns a func that
// logs its completion with the elapsed time.
func Timed(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")
	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
