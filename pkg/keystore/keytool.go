package keystore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/logging"
	"github.com/arthur-debert/deploytpl/pkg/remote"
)

// Defaults for Keytool.
const (
	DefaultStoreType = "jks"
	DefaultDName     = "cn=Continuent, ou=IT, o=VMware, c=US"
	DefaultTTLDays   = 365
)

// Keytool builds RSA keystores with the JDK keytool command.
type Keytool struct {
	Exec remote.Executor
	// Dir receives the generated files.
	Dir       string
	StoreType string
	DName     string

	logger zerolog.Logger
}

// NewKeytool returns a Keytool writing into dir through exec.
func NewKeytool(exec remote.Executor, dir string) *Keytool {
	return &Keytool{
		Exec:      exec,
		Dir:       dir,
		StoreType: DefaultStoreType,
		DName:     DefaultDName,
		logger:    logging.GetLogger("keystore.keytool"),
	}
}

// Build implements Builder. Each call creates a new file named with a random
// uuid; use a Cache to share one keystore per alias.
func (k *Keytool) Build(ctx context.Context, alias, password string, ttlDays int) (string, error) {
	if alias == "" {
		return "", errors.New(errors.ErrInvalidInput, "a keystore alias is required")
	}
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	ctx = remote.WithSecrets(ctx, password)

	if _, err := k.Exec.Run(ctx, "command -v keytool", "", ""); err != nil {
		return "", errors.Wrap(err, errors.ErrTransport,
			"unable to find keytool; make sure Java is installed and keytool is in the PATH")
	}
	if _, err := k.Exec.Run(ctx, "mkdir -p "+remote.ShellQuote(k.Dir), "", ""); err != nil {
		return "", err
	}

	path := filepath.Join(k.Dir, uuid.NewString()+".jks")
	if _, err := k.Exec.Run(ctx, k.genkeyCommand(alias, password, path, ttlDays), "", ""); err != nil {
		return "", err
	}

	k.logger.Info().Str("alias", alias).Str("path", path).Int("validity", ttlDays).Msg("Keystore created")
	return path, nil
}

func (k *Keytool) genkeyCommand(alias, password, path string, ttlDays int) string {
	storeType := k.StoreType
	if storeType == "" {
		storeType = DefaultStoreType
	}
	dname := k.DName
	if dname == "" {
		dname = DefaultDName
	}

	args := []string{
		"keytool", "-genkey",
		"-alias", remote.ShellQuote(alias),
		"-keyalg", "RSA",
		"-keystore", remote.ShellQuote(path),
		"-validity", fmt.Sprint(ttlDays),
		"-storetype", remote.ShellQuote(storeType),
		"-storepass", remote.ShellQuote(password),
		"-keypass", remote.ShellQuote(password),
		"-dname", remote.ShellQuote(dname),
	}
	return strings.Join(args, " ")
}
