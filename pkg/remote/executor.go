// Package remote runs commands and copies files on deployment hosts.
//
// Only the local host is implemented here; SSH transports satisfy the same
// Executor interface. Failures are reported as *TransportError and are never
// retried; retry policy belongs to the caller.
package remote

import (
	"context"
	"fmt"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// Result is the outcome of a command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs commands and moves files on a host as a user. Implementations
// mask the secrets registered with WithSecrets wherever they report a command.
type Executor interface {
	Run(ctx context.Context, command, host, user string) (Result, error)
	Copy(ctx context.Context, localPath, remotePath, host, user string) error
	Fetch(ctx context.Context, remotePath, localPath, host, user string) error
}

// TransportError reports a failed command or transfer: a non-zero exit, a
// timeout or a process that could not be started. Command and Stderr are
// already redacted with the secrets of the failing call.
type TransportError struct {
	Host     string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("command failed on %s: %s", e.Host, e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsDeployError wraps the transport error under the TRANSPORT code.
func (e *TransportError) AsDeployError() *errors.DeployError {
	return errors.Wrap(e, errors.ErrTransport, "remote execution failed").
		WithDetails(map[string]interface{}{
			"host":     e.Host,
			"command":  e.Command,
			"exitCode": e.ExitCode,
		})
}
