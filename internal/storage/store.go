// Package storage persists fingerprint index snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
)

// FormatVersion is written with every snapshot. Load refuses any other value.
const FormatVersion = 1

var (
	ErrFormatVersion = errors.New("unsupported snapshot format version")
	ErrNoSnapshot    = errors.New("no snapshot stored")
)

// Meta describes a stored snapshot.
type Meta struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	Songs       int       `json:"songs"`
	Occurrences int       `json:"occurrences"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store saves and restores whole-index snapshots. Save replaces whatever was
// stored before; Load rebuilds idx wholesale.
type Store interface {
	Save(ctx context.Context, idx *index.Index) (Meta, error)
	Load(ctx context.Context, idx *index.Index) (Meta, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Open returns the store for backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return NewDBClientWithPath(path)
	case BackendBadger:
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func checkVersion(v int) error {
	if v != FormatVersion {
		return fmt.Errorf("%w: %d (want %d)", ErrFormatVersion, v, FormatVersion)
	}
	return nil
}
