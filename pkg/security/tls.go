// Package security prepares the security files a deployment needs before its
// templates are rendered and audits generated files for loose permissions.
package security

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/deploy"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/internal/hashutil"
	"github.com/arthur-debert/deploytpl/pkg/keystore"
	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// StagingDirName is created under temp_directory when no staging directory
// is given.
const StagingDirName = "deploytpl-staging"

// TLSOptions configures EnsureTLSKeystore.
type TLSOptions struct {
	Cache   *keystore.Cache
	Builder keystore.Builder
	// StagingDir receives the per-host copy of the keystore.
	StagingDir string
}

// EnsureTLSKeystore generates a TLS keystore for dep when THL or RMI SSL is
// enabled and no keystore path is configured, or the path is "autogenerate".
// The keystore is built once per alias through the cache, copied into the
// staging directory under a unique name and the copy is set as the host's
// java_tls_keystore_path. Templates see that path relocated to where the
// staged files land on the host. It returns the staged path, or "" when
// nothing was generated.
func EnsureTLSKeystore(ctx context.Context, dep *deploy.Deployment, opts TLSOptions) (string, error) {
	logger := logging.ForDeployment("security.tls", dep.Host, dep.Service)
	scope := dep.Scope()
	lookup := func(key string) config.Value {
		v, _ := dep.Store.Lookup(config.Path{key}, scope, config.Raw)
		return v
	}

	if !lookup(config.KeyEnableTHLSSL).Bool() && !lookup(config.KeyEnableRMISSL).Bool() {
		return "", nil
	}

	current := lookup(config.KeyJavaTLSKeystorePath).String()
	switch current {
	case "":
		logger.Warn().Msg("SSL is enabled but no TLS keystore was given; a self-signed certificate will be generated")
	case config.AutoGenerate:
	default:
		return "", nil
	}

	if opts.Cache == nil || opts.Builder == nil {
		return "", errors.New(errors.ErrInternal, "a keystore cache and builder are required")
	}

	alias := lookup(config.KeyJavaTLSEntryAlias).String()
	password := lookup(config.KeyJavaKeystorePassword).String()
	lifetime, err := strconv.Atoi(lookup(config.KeyJavaTLSKeyLifetime).String())
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "invalid %s", config.KeyJavaTLSKeyLifetime).
			WithDetail("host", dep.Host)
	}

	generated, err := opts.Cache.Build(ctx, opts.Builder, alias, password, lifetime)
	if err != nil {
		return "", err
	}

	stagingDir := opts.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(dep.Settings.TempDirectory, StagingDirName)
	}
	staged := filepath.Join(stagingDir, uuid.NewString()+filepath.Ext(generated))
	checksum, err := copyFile(dep.FS, generated, staged)
	if err != nil {
		return "", err
	}

	if err := dep.Store.Override(config.HostPath(dep.Host, config.KeyJavaTLSKeystorePath), staged); err != nil {
		return "", err
	}
	deployed := filepath.Join(dep.Settings.TempDirectory, filepath.Base(dep.Settings.PrepareDirectory))
	dep.Store.DeclareTemplateValue(config.KeyJavaTLSKeystorePath, config.RelocatedPath(deployed))

	logger.Info().Str("alias", alias).Str("path", staged).Str("checksum", checksum).Msg("TLS keystore staged")
	return staged, nil
}

// copyFile copies src to dst with owner-only permissions and verifies the
// copy. It returns the checksum of the staged file.
func copyFile(fs afero.Fs, src, dst string) (string, error) {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to read keystore %s", src).
			WithDetail("path", src)
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return "", errors.Wrapf(err, errors.ErrIO, "failed to create directory for %s", dst).
			WithDetail("path", dst)
	}
	if err := afero.WriteFile(fs, dst, data, 0600); err != nil {
		return "", errors.Wrapf(err, errors.ErrIO, "failed to write %s", dst).
			WithDetail("path", dst)
	}

	want, err := hashutil.CalculateFileChecksum(fs, src)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to checksum %s", src).
			WithDetail("path", src)
	}
	got, err := hashutil.CalculateFileChecksum(fs, dst)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to checksum %s", dst).
			WithDetail("path", dst)
	}
	if got != want {
		return "", errors.Newf(errors.ErrFileWrite, "staged keystore %s does not match %s", dst, src).
			WithDetails(map[string]interface{}{"path": dst, "expected": want, "actual": got})
	}
	return got, nil
}
