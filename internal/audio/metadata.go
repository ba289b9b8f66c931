package audio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Metadata holds the embedded tags of interest.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata reads ID3, MP4, FLAC or OGG tags from path.
func ReadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}, nil
}

// DisplayName returns the file name, or "Title - Artist" when useTags is set
// and the file carries a title tag.
func DisplayName(path string, useTags bool) string {
	name := filepath.Base(path)
	if !useTags {
		return name
	}
	meta, err := ReadMetadata(path)
	if err != nil || meta.Title == "" {
		return name
	}
	if meta.Artist == "" {
		return meta.Title
	}
	return meta.Title + " - " + meta.Artist
}
