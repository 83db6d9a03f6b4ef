package keystore_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/keystore"
	"github.com/arthur-debert/deploytpl/pkg/remote"
)

// fakeExecutor records commands and fails those starting with a prefix in fail.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	fail     []string
}

func (f *fakeExecutor) Run(_ context.Context, command, host, _ string) (remote.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	for _, p := range f.fail {
		if strings.HasPrefix(command, p) {
			terr := &remote.TransportError{Host: "localhost", Command: command, ExitCode: 1}
			return remote.Result{ExitCode: 1}, terr.AsDeployError()
		}
	}
	return remote.Result{}, nil
}

func (f *fakeExecutor) Copy(context.Context, string, string, string, string) error  { return nil }
func (f *fakeExecutor) Fetch(context.Context, string, string, string, string) error { return nil }

func TestCacheGeneratesOncePerAlias(t *testing.T) {
	cache := keystore.NewCache()
	var calls int32

	factory := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return "/tmp/tls.jks", nil
	}

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := cache.GetOrCreate(context.Background(), "tls", factory)
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, p := range paths {
		assert.Equal(t, "/tmp/tls.jks", p)
	}

	p, err := cache.GetOrCreate(context.Background(), "tls", factory)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tls.jks", p)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, cache.Len())
}

func TestCacheSeparatesAliases(t *testing.T) {
	cache := keystore.NewCache()
	builder := keystore.BuilderFunc(func(_ context.Context, alias, _ string, _ int) (string, error) {
		return "/tmp/" + alias + ".jks", nil
	})

	a, err := cache.Build(context.Background(), builder, "tls", "secret", 365)
	require.NoError(t, err)
	b, err := cache.Build(context.Background(), builder, "jgroups", "secret", 365)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tls.jks", a)
	assert.Equal(t, "/tmp/jgroups.jks", b)
	assert.Equal(t, 2, cache.Len())
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	cache := keystore.NewCache()
	boom := stderrors.New("boom")
	attempts := 0

	factory := func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", boom
		}
		return "/tmp/tls.jks", nil
	}

	_, err := cache.GetOrCreate(context.Background(), "tls", factory)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	p, err := cache.GetOrCreate(context.Background(), "tls", factory)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tls.jks", p)
	assert.Equal(t, 2, attempts)
}

func TestKeytoolBuild(t *testing.T) {
	exec := &fakeExecutor{}
	kt := keystore.NewKeytool(exec, "/staging/keys")

	path, err := kt.Build(context.Background(), "tls", "tungsten", 0)
	require.NoError(t, err)

	assert.Equal(t, "/staging/keys", filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".jks"))

	require.Len(t, exec.commands, 3)
	assert.Equal(t, "command -v keytool", exec.commands[0])
	assert.Equal(t, "mkdir -p '/staging/keys'", exec.commands[1])

	genkey := exec.commands[2]
	assert.True(t, strings.HasPrefix(genkey, "keytool -genkey -alias 'tls' -keyalg RSA"))
	assert.Contains(t, genkey, "-keystore '"+path+"'")
	assert.Contains(t, genkey, "-validity 365")
	assert.Contains(t, genkey, "-storetype 'jks'")
	assert.Contains(t, genkey, "-storepass 'tungsten' -keypass 'tungsten'")
	assert.Contains(t, genkey, "-dname '"+keystore.DefaultDName+"'")
}

func TestKeytoolUniqueNames(t *testing.T) {
	kt := keystore.NewKeytool(&fakeExecutor{}, "/staging")

	a, err := kt.Build(context.Background(), "tls", "pw", 30)
	require.NoError(t, err)
	b, err := kt.Build(context.Background(), "tls", "pw", 30)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestKeytoolMissing(t *testing.T) {
	exec := &fakeExecutor{fail: []string{"command -v keytool"}}
	kt := keystore.NewKeytool(exec, "/staging")

	_, err := kt.Build(context.Background(), "tls", "pw", 30)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
	assert.Contains(t, err.Error(), "unable to find keytool")
	assert.Len(t, exec.commands, 1)
}

func TestKeytoolGenkeyFailure(t *testing.T) {
	exec := &fakeExecutor{fail: []string{"keytool -genkey"}}
	kt := keystore.NewKeytool(exec, "/staging")

	_, err := kt.Build(context.Background(), "tls", "pw", 30)
	require.Error(t, err)

	var terr *remote.TransportError
	require.True(t, stderrors.As(err, &terr))
	assert.Equal(t, 1, terr.ExitCode)
}

func TestKeytoolRequiresAlias(t *testing.T) {
	_, err := keystore.NewKeytool(&fakeExecutor{}, "/staging").Build(context.Background(), "", "pw", 30)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

// echoingExecutor runs commands through a real Local executor, turning the
// keytool lookup into a no-op and making genkey fail after echoing its own
// command line to stderr.
type echoingExecutor struct {
	*remote.Local
}

func (e echoingExecutor) Run(ctx context.Context, command, host, user string) (remote.Result, error) {
	switch {
	case command == "command -v keytool":
		command = "true"
	case strings.HasPrefix(command, "keytool -genkey"):
		command = "echo " + remote.ShellQuote(command) + " >&2; exit 2"
	}
	return e.Local.Run(ctx, command, host, user)
}

func TestKeytoolFailureHidesPassword(t *testing.T) {
	var buf bytes.Buffer
	original, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(level)
	})
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	k := keystore.NewKeytool(echoingExecutor{remote.NewLocal()}, t.TempDir())
	_, err := k.Build(context.Background(), "tls", "S3cretPass", 30)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))

	assert.NotContains(t, err.Error(), "S3cretPass")
	assert.NotContains(t, buf.String(), "S3cretPass")
	assert.Contains(t, err.Error(), "-storepass "+remote.Masked)
}
