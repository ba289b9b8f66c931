// Package index holds the in-memory fingerprint index: a song registry and
// hash buckets of (song, slice) occurrences.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/mdobak/go-xerrors"

	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
)

const shardCount = 64

// ErrUnknownSong marks an occurrence or lookup that references a song id the
// index never registered. It always indicates a bug in the caller or a
// corrupt snapshot.
var ErrUnknownSong = errors.New("unknown song id")

// Entry is one occurrence stored under a hash, used to rebuild an index.
type Entry struct {
	Hash uint64
	model.Occurrence
}

type shard struct {
	mu      sync.RWMutex
	buckets map[uint64][]model.Occurrence
}

// Index is safe for concurrent use. AddSong, Ingest, Lookup and SongName may
// run in parallel; Clear and Restore wait for all of them and block new ones.
type Index struct {
	gate sync.RWMutex

	songMu sync.RWMutex
	songs  map[uint32]string
	nextID uint32

	shards [shardCount]shard
}

// New returns an empty index.
func New() *Index {
	idx := &Index{}
	idx.reset()
	return idx
}

func (idx *Index) reset() {
	idx.songs = make(map[uint32]string)
	idx.nextID = 0
	for i := range idx.shards {
		idx.shards[i].buckets = make(map[uint64][]model.Occurrence)
	}
}

func (idx *Index) shardFor(hash uint64) *shard {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], hash)
	return &idx.shards[xxhash.Checksum64(buf[:])%shardCount]
}

// Clear drops every song and bucket and resets id assignment to 0.
func (idx *Index) Clear() {
	idx.gate.Lock()
	defer idx.gate.Unlock()
	idx.reset()
}

// AddSong registers name and returns its id. Ids are sequential from 0.
func (idx *Index) AddSong(name string) uint32 {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	idx.songMu.Lock()
	defer idx.songMu.Unlock()
	id := idx.nextID
	idx.nextID++
	idx.songs[id] = name
	return id
}

func (idx *Index) hasSong(id uint32) bool {
	idx.songMu.RLock()
	defer idx.songMu.RUnlock()
	_, ok := idx.songs[id]
	return ok
}

func unknownSong(id uint32) error {
	return xerrors.New(fmt.Errorf("%w: %d", ErrUnknownSong, id))
}

// Ingest appends {songID, slice} to the bucket for hash.
func (idx *Index) Ingest(songID uint32, slice int32, hash uint64) error {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	if !idx.hasSong(songID) {
		return unknownSong(songID)
	}
	idx.appendOne(hash, model.Occurrence{SongID: songID, Time: slice})
	return nil
}

// IngestCodes appends one occurrence per code for songID.
func (idx *Index) IngestCodes(songID uint32, codes []model.Code) error {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	if !idx.hasSong(songID) {
		return unknownSong(songID)
	}
	for _, c := range codes {
		idx.appendOne(c.Hash, model.Occurrence{SongID: songID, Time: c.Slice})
	}
	return nil
}

func (idx *Index) appendOne(hash uint64, occ model.Occurrence) {
	s := idx.shardFor(hash)
	s.mu.Lock()
	s.buckets[hash] = append(s.buckets[hash], occ)
	s.mu.Unlock()
}

// Lookup returns a copy of every occurrence recorded for hash, or nil.
func (idx *Index) Lookup(hash uint64) []model.Occurrence {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	s := idx.shardFor(hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.buckets[hash]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]model.Occurrence, len(bucket))
	copy(out, bucket)
	return out
}

// SongName returns the display name registered for id.
func (idx *Index) SongName(id uint32) (string, bool) {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	idx.songMu.RLock()
	defer idx.songMu.RUnlock()
	name, ok := idx.songs[id]
	return name, ok
}

// Songs returns every registered song ordered by id.
func (idx *Index) Songs() []model.Song {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	idx.songMu.RLock()
	songs := make([]model.Song, 0, len(idx.songs))
	for id, name := range idx.songs {
		songs = append(songs, model.Song{ID: id, Name: name})
	}
	idx.songMu.RUnlock()

	sort.Slice(songs, func(i, j int) bool { return songs[i].ID < songs[j].ID })
	return songs
}

// Len returns the number of distinct hashes.
func (idx *Index) Len() int {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	n := 0
	for i := range idx.shards {
		s := &idx.shards[i]
		s.mu.RLock()
		n += len(s.buckets)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every bucket until fn returns false. The slice passed to
// fn must not be retained or modified, and fn must not call back into idx.
func (idx *Index) Range(fn func(hash uint64, occurrences []model.Occurrence) bool) {
	idx.gate.RLock()
	defer idx.gate.RUnlock()

	for i := range idx.shards {
		s := &idx.shards[i]
		s.mu.RLock()
		for h, occ := range s.buckets {
			if !fn(h, occ) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Snapshot copies every song and occurrence while holding exclusive access,
// so each returned entry references a returned song. Entries are grouped by
// hash in bucket order.
func (idx *Index) Snapshot() ([]model.Song, []Entry) {
	idx.gate.Lock()
	defer idx.gate.Unlock()

	songs := make([]model.Song, 0, len(idx.songs))
	for id, name := range idx.songs {
		songs = append(songs, model.Song{ID: id, Name: name})
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].ID < songs[j].ID })

	var entries []Entry
	for i := range idx.shards {
		for h, occ := range idx.shards[i].buckets {
			for _, o := range occ {
				entries = append(entries, Entry{Hash: h, Occurrence: o})
			}
		}
	}
	return songs, entries
}

// Restore replaces the whole index with songs and entries. The id counter
// continues after the largest restored id. If any entry references a song
// not in songs the index is left empty and ErrUnknownSong is returned.
func (idx *Index) Restore(songs []model.Song, entries []Entry) error {
	idx.gate.Lock()
	defer idx.gate.Unlock()

	idx.reset()
	for _, s := range songs {
		if _, dup := idx.songs[s.ID]; dup {
			idx.reset()
			return xerrors.New(fmt.Errorf("restoring index: duplicate song id %d", s.ID))
		}
		idx.songs[s.ID] = s.Name
		if s.ID >= idx.nextID {
			idx.nextID = s.ID + 1
		}
	}

	for _, e := range entries {
		if _, ok := idx.songs[e.SongID]; !ok {
			idx.reset()
			return unknownSong(e.SongID)
		}
		s := idx.shardFor(e.Hash)
		s.buckets[e.Hash] = append(s.buckets[e.Hash], e.Occurrence)
	}
	return nil
}
