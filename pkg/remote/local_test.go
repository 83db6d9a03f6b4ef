package remote_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/remote"
)

func TestLocalRun(t *testing.T) {
	l := remote.NewLocal()

	res, err := l.Run(context.Background(), "echo hello; echo oops >&2", "", "tungsten")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestLocalRunNonZeroExit(t *testing.T) {
	l := remote.NewLocal()

	res, err := l.Run(context.Background(), "echo broken >&2; exit 3", remote.LocalHost, "")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
	assert.Equal(t, 3, res.ExitCode)

	var terr *remote.TransportError
	require.True(t, stderrors.As(err, &terr))
	assert.Equal(t, remote.LocalHost, terr.Host)
	assert.Equal(t, 3, terr.ExitCode)
	assert.Equal(t, "broken", terr.Stderr)

	details := errors.GetErrorDetails(err)
	assert.Equal(t, 3, details["exitCode"])
	assert.Equal(t, "echo broken >&2; exit 3", details["command"])
}

func TestLocalRunTimeout(t *testing.T) {
	l := remote.NewLocal()
	l.Timeout = 50 * time.Millisecond

	_, err := l.Run(context.Background(), "sleep 5", "", "")
	require.Error(t, err)

	var terr *remote.TransportError
	require.True(t, stderrors.As(err, &terr))
	assert.ErrorIs(t, terr.Err, context.DeadlineExceeded)
}

func TestLocalRejectsOtherHosts(t *testing.T) {
	l := remote.NewLocal()

	_, err := l.Run(context.Background(), "true", "db9.invalid", "")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))

	err = l.Copy(context.Background(), "a", "b", "db9.invalid", "")
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
}

func TestLocalCopyAndFetch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tls.jks")
	require.NoError(t, os.WriteFile(src, []byte("keystore"), 0600))

	l := remote.NewLocal()
	dst := filepath.Join(dir, "staging", "tls.jks")
	require.NoError(t, l.Copy(context.Background(), src, dst, "", ""))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "keystore", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	back := filepath.Join(dir, "back.jks")
	require.NoError(t, l.Fetch(context.Background(), dst, back, "", ""))
	data, err = os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, "keystore", string(data))
}

func TestLocalCopyMissingSource(t *testing.T) {
	l := remote.NewLocal()
	err := l.Copy(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "x"), "", "")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", remote.ShellQuote(""))
	assert.Equal(t, "'tungsten'", remote.ShellQuote("tungsten"))
	assert.Equal(t, `'it'\''s'`, remote.ShellQuote("it's"))

	res, err := remote.NewLocal().Run(context.Background(), "printf %s "+remote.ShellQuote("a 'b' $c"), "", "")
	require.NoError(t, err)
	assert.Equal(t, "a 'b' $c", res.Stdout)
}

// captureLog routes the global logger into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(level)
	})
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return &buf
}

func TestLocalRunRedactsSecrets(t *testing.T) {
	buf := captureLog(t)
	l := remote.NewLocal()
	ctx := remote.WithSecrets(context.Background(), "S3cret pass", "")

	command := "echo 'S3cret pass' >&2; false --password " + remote.ShellQuote("S3cret pass")
	res, err := l.Run(ctx, command, "", "")
	require.Error(t, err)
	assert.Contains(t, res.Stderr, "S3cret pass")

	assert.NotContains(t, err.Error(), "S3cret")
	assert.NotContains(t, buf.String(), "S3cret")
	assert.Contains(t, buf.String(), remote.Masked)

	var terr *remote.TransportError
	require.True(t, stderrors.As(err, &terr))
	assert.Equal(t, "echo ******** >&2; false --password ********", terr.Command)
	assert.Equal(t, remote.Masked, terr.Stderr)
	assert.Equal(t, terr.Command, errors.GetErrorDetails(err)["command"])
}

func TestRedact(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "keytool -storepass x", remote.Redact(ctx, "keytool -storepass x"))

	ctx = remote.WithSecrets(ctx, "x")
	ctx = remote.WithSecrets(ctx, "it's")
	assert.Equal(t, "keytool -storepass ******** -keypass ********",
		remote.Redact(ctx, "keytool -storepass x -keypass "+remote.ShellQuote("it's")))
}
