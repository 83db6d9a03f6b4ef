package filesystem

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// ReadLines returns the lines of name without their trailing newline.
func ReadLines(fsys afero.Fs, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to open %s", name).
			WithDetail("path", name)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	err = EachLine(f, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", name).
			WithDetail("path", name)
	}
	return lines, nil
}

// EachLine calls fn for every line of r with the "\n" or "\r\n" terminator
// removed. Lines have no length limit. A final line without a newline is
// still reported; an empty input reports nothing.
func EachLine(r io.Reader, fn func(line string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if line == "" && err == io.EOF {
			return nil
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		fn(line)
		if err == io.EOF {
			return nil
		}
	}
}

// IsDir reports whether name exists and is a directory.
func IsDir(fsys afero.Fs, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.IsDir()
}

// Exists reports whether name exists.
func Exists(fsys afero.Fs, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}

// WalkFiles calls fn for every regular file under root.
func WalkFiles(fsys afero.Fs, root string, fn func(path string, info fs.FileInfo) error) error {
	return afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return fn(path, info)
	})
}
