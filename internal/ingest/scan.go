package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the file types picked up by Scan when none are given.
var DefaultExtensions = []string{".mp3", ".wav"}

// Scan lists the regular files directly inside dir whose extension matches
// one of exts (case-insensitive), sorted by name.
func Scan(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if matchExt(e.Name(), exts) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func matchExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
