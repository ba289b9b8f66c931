package fingerprinter

import "github.com/sojinoh/Audio-Fingerprinting/internal/storage"

// Store persists index snapshots.
type Store = storage.Store

const (
	BackendSQLite = storage.BackendSQLite
	BackendBadger = storage.BackendBadger
)

// ErrFormatVersion is returned by Restore for snapshots written by an
// incompatible version.
var (
	ErrFormatVersion = storage.ErrFormatVersion
	ErrNoSnapshot    = storage.ErrNoSnapshot
)

// NewSQLiteStore opens (or creates) a SQLite snapshot database at dbPath.
func NewSQLiteStore(dbPath string) (Store, error) {
	return storage.NewDBClientWithPath(dbPath)
}

// NewBadgerStore opens a badger snapshot store in dir. An empty dir keeps
// everything in memory.
func NewBadgerStore(dir string) (Store, error) {
	return storage.NewBadgerStore(dir)
}

// OpenStore opens the store for backend at path.
func OpenStore(backend, path string) (Store, error) {
	return storage.Open(backend, path)
}
