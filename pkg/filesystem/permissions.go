package filesystem

import (
	"os"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// File protection levels.
const (
	ProtectionNone  = "none"
	ProtectionGroup = "group"
	ProtectionUser  = "user"
)

// Umask returns the permission bits removed from generated files at level.
// An empty level is the same as none.
func Umask(level string) (os.FileMode, error) {
	switch level {
	case "", ProtectionNone:
		return 0, nil
	case ProtectionGroup:
		return 0027, nil
	case ProtectionUser:
		return 0077, nil
	}
	return 0, errors.Newf(errors.ErrInvalidInput, "invalid file protection level %q", level).
		WithDetail("level", level)
}

// LimitMode applies umask to mode, keeping non-permission bits.
func LimitMode(mode, umask os.FileMode) os.FileMode {
	return mode &^ (umask & os.ModePerm)
}

// Exceeds reports whether mode grants any bit umask forbids.
func Exceeds(mode, umask os.FileMode) bool {
	return mode.Perm()&umask != 0
}
