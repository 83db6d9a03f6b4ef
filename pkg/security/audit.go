package security

import (
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/filesystem"
)

// UnsecuredFile is a file granting permission bits the protection level
// forbids.
type UnsecuredFile struct {
	Path string
	Mode os.FileMode
}

// FindUnsecuredFiles walks dir and returns, sorted by path, the files whose
// permissions exceed what umask allows.
func FindUnsecuredFiles(fsys afero.Fs, dir string, umask os.FileMode) ([]UnsecuredFile, error) {
	var out []UnsecuredFile
	err := filesystem.WalkFiles(fsys, dir, func(path string, info fs.FileInfo) error {
		if filesystem.Exceeds(info.Mode(), umask) {
			out = append(out, UnsecuredFile{Path: path, Mode: info.Mode().Perm()})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to scan %s", dir).
			WithDetail("path", dir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
