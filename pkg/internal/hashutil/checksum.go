package hashutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/filesystem"
)

// Absent is the fingerprint of a file that does not exist. It never collides
// with a computed value because those always carry the "sha256:" prefix.
const Absent = "absent"

// CalculateFileChecksum calculates the SHA256 checksum of a file
func CalculateFileChecksum(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// Fingerprint hashes the meaningful lines of a file: lines starting with '#'
// and empty lines are skipped, so comment-only edits and the generation
// timestamp header do not change the result. A missing file yields Absent.
func Fingerprint(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Absent, nil
		}
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	err = filesystem.EachLine(file, func(line string) {
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		_, _ = io.WriteString(hash, line)
		_, _ = io.WriteString(hash, "\n")
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
