package utils

import (
	"fmt"
	"os"
)

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// FileExists reports whether path names an existing regular file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
