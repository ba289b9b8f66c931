package main

import (
	"fmt"
)

// Code limit constants for validation
const (
	// MaxCodesSoftLimit is roughly a minute of 44.1 kHz audio at one code per chunk.
	MaxCodesSoftLimit = 1000

	// MaxCodesHardLimit is the absolute maximum accepted in one request.
	MaxCodesHardLimit = 50000
)

// CodeDTO is one precomputed fingerprint code.
type CodeDTO struct {
	Slice int32  `json:"slice"`
	Hash  uint64 `json:"hash"`
}

// MatchCodesRequest is the request body for POST /api/match/codes
type MatchCodesRequest struct {
	Codes []CodeDTO `json:"codes"`
}

// Validate checks if the request is valid
func (r *MatchCodesRequest) Validate() error {
	if len(r.Codes) == 0 {
		return fmt.Errorf("codes cannot be empty")
	}
	if len(r.Codes) > MaxCodesHardLimit {
		return fmt.Errorf("too many codes: %d (maximum: %d)", len(r.Codes), MaxCodesHardLimit)
	}
	for _, c := range r.Codes {
		if c.Slice < 0 {
			return fmt.Errorf("invalid slice index %d", c.Slice)
		}
	}
	return nil
}

// MatchResponse is the response for both match endpoints
type MatchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

// MatchResultDTO represents a single match result
type MatchResultDTO struct {
	Rank     int    `json:"rank"`
	SongID   uint32 `json:"song_id"`
	Name     string `json:"name"`
	Strength int    `json:"strength"`
	Offset   int32  `json:"offset"`
	Line     string `json:"line"`
}

// LoadRequest is the request body for POST /api/load
type LoadRequest struct {
	Dir string `json:"dir"`
}

func (r *LoadRequest) Validate() error {
	if r.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	return nil
}

// FailedFileDTO names a file that could not be indexed.
type FailedFileDTO struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// LoadResponse summarises a directory load
type LoadResponse struct {
	Indexed  int             `json:"indexed"`
	Codes    int             `json:"codes"`
	Failed   []FailedFileDTO `json:"failed"`
	Snapshot string          `json:"snapshot,omitempty"`
	Elapsed  string          `json:"elapsed"`
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
	Name    string `json:"name"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// SnapshotResponse is the response for POST /api/snapshot
type SnapshotResponse struct {
	ID          string `json:"id"`
	Version     int    `json:"version"`
	Songs       int    `json:"songs"`
	Occurrences int    `json:"occurrences"`
	CreatedAt   string `json:"created_at"`
}

// MetricsResponse provides server health and index metrics
type MetricsResponse struct {
	Status       string  `json:"status"`
	Backend      string  `json:"backend"`
	DatabasePath string  `json:"database_path"`
	SongCount    int     `json:"song_count"`
	Buckets      int     `json:"buckets"`
	Occurrences  int     `json:"occurrences"`
	MeanBucket   float64 `json:"mean_bucket"`
	StdDevBucket float64 `json:"stddev_bucket"`
	MaxBucket    int     `json:"max_bucket"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
