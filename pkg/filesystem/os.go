package filesystem

import (
	"github.com/spf13/afero"
)

// NewOS returns the real file system.
func NewOS() afero.Fs {
	return afero.NewOsFs()
}

// NewMemory returns an empty in-memory file system.
func NewMemory() afero.Fs {
	return afero.NewMemMapFs()
}
