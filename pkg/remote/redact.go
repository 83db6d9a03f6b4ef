package remote

import (
	"context"
	"strings"
)

// Masked replaces secrets in command strings and captured output.
const Masked = "********"

type secretsKey struct{}

// WithSecrets returns a context whose commands must not reveal secrets in
// logs or errors. Secrets accumulate across nested calls; empty ones are
// dropped.
func WithSecrets(ctx context.Context, secrets ...string) context.Context {
	existing := secretsFrom(ctx)
	all := make([]string, 0, len(existing)+len(secrets))
	all = append(all, existing...)
	for _, s := range secrets {
		if s != "" {
			all = append(all, s)
		}
	}
	return context.WithValue(ctx, secretsKey{}, all)
}

func secretsFrom(ctx context.Context) []string {
	secrets, _ := ctx.Value(secretsKey{}).([]string)
	return secrets
}

// Redact masks every secret registered on ctx in s, quoted forms first.
func Redact(ctx context.Context, s string) string {
	for _, secret := range secretsFrom(ctx) {
		s = strings.ReplaceAll(s, ShellQuote(secret), Masked)
		s = strings.ReplaceAll(s, secret, Masked)
	}
	return s
}
