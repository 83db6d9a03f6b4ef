package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// LocalHost is the host name Local accepts besides the empty string.
const LocalHost = "localhost"

// DefaultTimeout bounds a single command run by Local.
const DefaultTimeout = 5 * time.Minute

// Local runs commands with sh -c on this machine. Failures are returned as
// TRANSPORT errors wrapping a *TransportError. The user argument is ignored;
// commands run as the current user.
type Local struct {
	Timeout time.Duration
	logger  zerolog.Logger
}

// NewLocal returns a Local executor with DefaultTimeout.
func NewLocal() *Local {
	return &Local{
		Timeout: DefaultTimeout,
		logger:  logging.GetLogger("remote.local"),
	}
}

// Run implements Executor.
func (l *Local) Run(ctx context.Context, command, host, user string) (Result, error) {
	shown := Redact(ctx, command)
	if err := l.checkHost(host, shown); err != nil {
		return Result{}, err
	}

	timeout := l.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l.logger.Debug().Str("command", shown).Msg("Executing command")

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children of sh may keep the pipes open after a timeout kill
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	terr := &TransportError{
		Host:    hostName(host),
		Command: shown,
		Stderr:  Redact(ctx, strings.TrimSpace(res.Stderr)),
	}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		terr.Err = ctx.Err()
	case errors.As(err, &exitErr):
		terr.ExitCode = exitErr.ExitCode()
		res.ExitCode = terr.ExitCode
	default:
		terr.Err = err
	}

	l.logger.Error().
		Err(err).
		Str("command", shown).
		Int("exitCode", terr.ExitCode).
		Str("stderr", terr.Stderr).
		Msg("Command execution failed")
	return res, terr.AsDeployError()
}

// Copy implements Executor by copying localPath to remotePath on this machine.
func (l *Local) Copy(ctx context.Context, localPath, remotePath, host, user string) error {
	return l.copy(ctx, localPath, remotePath, host)
}

// Fetch implements Executor by copying remotePath to localPath on this machine.
func (l *Local) Fetch(ctx context.Context, remotePath, localPath, host, user string) error {
	return l.copy(ctx, remotePath, localPath, host)
}

func (l *Local) copy(ctx context.Context, src, dst, host string) error {
	op := "cp " + src + " " + dst
	if err := l.checkHost(host, op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return (&TransportError{Host: hostName(host), Command: op, Err: err}).AsDeployError()
	}

	if err := copyFile(src, dst); err != nil {
		return (&TransportError{Host: hostName(host), Command: op, Err: err}).AsDeployError()
	}
	l.logger.Debug().Str("from", src).Str("to", dst).Msg("Copied file")
	return nil
}

func (l *Local) checkHost(host, command string) error {
	if host == "" || host == LocalHost {
		return nil
	}
	if h, err := os.Hostname(); err == nil && h == host {
		return nil
	}
	return (&TransportError{
		Host:    host,
		Command: command,
		Err:     errors.New("the local executor cannot reach other hosts"),
	}).AsDeployError()
}

func hostName(host string) string {
	if host == "" {
		return LocalHost
	}
	return host
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// ShellQuote quotes s for use as a single sh argument.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
