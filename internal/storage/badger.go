package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/utils"
)

// Every snapshot lives under its own generation prefix. currentKey names the
// committed generation; it only moves after a generation is fully written.
var (
	currentKey = []byte("current")
	genMarker  = []byte("g/")
)

const (
	metaSuffix = "meta"
	songInfix  = "s/"
	hashInfix  = "h/"
)

// occurrenceSize is the encoded size of one occurrence: song id, slice.
const occurrenceSize = 8

// BadgerStore keeps a snapshot as one key per song and one key per hash bucket.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a store in dir. An empty dir opens an in-memory store.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func genPrefix(gen uint64) []byte {
	p := make([]byte, len(genMarker)+9)
	copy(p, genMarker)
	binary.BigEndian.PutUint64(p[len(genMarker):], gen)
	p[len(p)-1] = '/'
	return p
}

func withSuffix(prefix []byte, parts ...[]byte) []byte {
	k := append([]byte(nil), prefix...)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

func metaKey(prefix []byte) []byte {
	return withSuffix(prefix, []byte(metaSuffix))
}

func songKey(prefix []byte, id uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], id)
	return withSuffix(prefix, []byte(songInfix), b[:])
}

func hashKey(prefix []byte, h uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)
	return withSuffix(prefix, []byte(hashInfix), b[:])
}

func encodeOccurrences(occ []model.Occurrence) []byte {
	v := make([]byte, occurrenceSize*len(occ))
	for i, o := range occ {
		binary.BigEndian.PutUint32(v[i*occurrenceSize:], o.SongID)
		binary.BigEndian.PutUint32(v[i*occurrenceSize+4:], uint32(o.Time))
	}
	return v
}

func decodeOccurrences(hash uint64, v []byte, out []index.Entry) ([]index.Entry, error) {
	if len(v)%occurrenceSize != 0 {
		return out, fmt.Errorf("corrupt bucket %d: %d bytes", hash, len(v))
	}
	for i := 0; i < len(v); i += occurrenceSize {
		out = append(out, index.Entry{
			Hash: hash,
			Occurrence: model.Occurrence{
				SongID: binary.BigEndian.Uint32(v[i:]),
				Time:   int32(binary.BigEndian.Uint32(v[i+4:])),
			},
		})
	}
	return out, nil
}

// currentGen returns the committed generation, or false when nothing was
// ever saved.
func currentGen(txn *badger.Txn) (uint64, bool, error) {
	item, err := txn.Get(currentKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var gen uint64
	err = item.Value(func(v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("corrupt generation marker: %d bytes", len(v))
		}
		gen = binary.BigEndian.Uint64(v)
		return nil
	})
	return gen, true, err
}

// Save writes idx as a new generation and only then makes it current. A
// failed or cancelled save leaves the previous snapshot loadable.
func (b *BadgerStore) Save(ctx context.Context, idx *index.Index) (Meta, error) {
	var prev uint64
	var hasPrev bool
	if err := b.db.View(func(txn *badger.Txn) error {
		var err error
		prev, hasPrev, err = currentGen(txn)
		return err
	}); err != nil {
		return Meta{}, fmt.Errorf("reading current generation: %w", err)
	}

	next := prev + 1
	prefix := genPrefix(next)
	// Leftovers of an earlier failed save.
	if err := b.db.DropPrefix(prefix); err != nil {
		return Meta{}, fmt.Errorf("clearing generation %d: %w", next, err)
	}

	meta, err := b.write(ctx, prefix, idx)
	if err != nil {
		_ = b.db.DropPrefix(prefix)
		return Meta{}, err
	}

	var cur [8]byte
	binary.BigEndian.PutUint64(cur[:], next)
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(currentKey, cur[:])
	}); err != nil {
		_ = b.db.DropPrefix(prefix)
		return Meta{}, fmt.Errorf("committing generation %d: %w", next, err)
	}

	if hasPrev {
		// The new snapshot is committed; a stale generation is only wasted space.
		_ = b.db.DropPrefix(genPrefix(prev))
	}
	return meta, nil
}

func (b *BadgerStore) write(ctx context.Context, prefix []byte, idx *index.Index) (Meta, error) {
	songs, entries := idx.Snapshot()

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, s := range songs {
		if err := wb.Set(songKey(prefix, s.ID), []byte(s.Name)); err != nil {
			return Meta{}, fmt.Errorf("writing song %d: %w", s.ID, err)
		}
	}

	// Entries of one hash are contiguous.
	for start := 0; start < len(entries); {
		if err := ctx.Err(); err != nil {
			return Meta{}, err
		}
		hash := entries[start].Hash
		end := start
		occ := make([]model.Occurrence, 0, 1)
		for end < len(entries) && entries[end].Hash == hash {
			occ = append(occ, entries[end].Occurrence)
			end++
		}
		if err := wb.Set(hashKey(prefix, hash), encodeOccurrences(occ)); err != nil {
			return Meta{}, fmt.Errorf("writing bucket %d: %w", hash, err)
		}
		start = end
	}

	meta := Meta{
		ID:          utils.NewSnapshotID(),
		Version:     FormatVersion,
		Songs:       len(songs),
		Occurrences: len(entries),
		CreatedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, fmt.Errorf("encoding meta: %w", err)
	}
	if err := wb.Set(metaKey(prefix), raw); err != nil {
		return Meta{}, fmt.Errorf("writing meta: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return Meta{}, fmt.Errorf("flushing snapshot: %w", err)
	}
	return meta, nil
}

// Load rebuilds idx from the current generation.
func (b *BadgerStore) Load(ctx context.Context, idx *index.Index) (Meta, error) {
	var meta Meta
	var songs []model.Song
	var entries []index.Entry

	err := b.db.View(func(txn *badger.Txn) error {
		gen, ok, err := currentGen(txn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoSnapshot
		}
		prefix := genPrefix(gen)

		item, err := txn.Get(metaKey(prefix))
		if err != nil {
			return fmt.Errorf("reading meta of generation %d: %w", gen, err)
		}
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &meta) }); err != nil {
			return fmt.Errorf("decoding meta: %w", err)
		}
		if err := checkVersion(meta.Version); err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		songPrefix := withSuffix(prefix, []byte(songInfix))
		for it.Seek(songPrefix); it.ValidForPrefix(songPrefix); it.Next() {
			item := it.Item()
			id := binary.BigEndian.Uint32(item.Key()[len(songPrefix):])
			name, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			songs = append(songs, model.Song{ID: id, Name: string(name)})
		}

		hashPrefix := withSuffix(prefix, []byte(hashInfix))
		entries = make([]index.Entry, 0, meta.Occurrences)
		for it.Seek(hashPrefix); it.ValidForPrefix(hashPrefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			item := it.Item()
			hash := binary.BigEndian.Uint64(item.Key()[len(hashPrefix):])
			err := item.Value(func(v []byte) error {
				var derr error
				entries, derr = decodeOccurrences(hash, v, entries)
				return derr
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Meta{}, err
	}

	if err := idx.Restore(songs, entries); err != nil {
		return Meta{}, fmt.Errorf("restoring snapshot %s: %w", meta.ID, err)
	}
	return meta, nil
}
