package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/fingerprinter"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service fingerprinter.Service
	config  *ServerConfig
	log     fingerprinter.Logger

	// loading serialises directory loads; each one rebuilds the whole index.
	loading sync.Mutex
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	Backend        string
	TempDir        string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service fingerprinter.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func toMatchDTOs(matches []fingerprinter.Match) []MatchResultDTO {
	dtos := make([]MatchResultDTO, len(matches))
	for i, m := range matches {
		dtos[i] = MatchResultDTO{
			Rank:     i + 1,
			SongID:   m.SongID,
			Name:     m.Name,
			Strength: m.Strength,
			Offset:   m.Offset,
			Line:     m.String(),
		}
	}
	return dtos
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "Audio Fingerprinting API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"songs":       "GET /api/songs",
			"addSongFile": "POST /api/songs",
			"getSong":     "GET /api/songs/{id}",
			"load":        "POST /api/load",
			"snapshot":    "POST /api/snapshot",
			"matchFile":   "POST /api/match",
			"matchCodes":  "POST /api/match/codes",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	st := s.service.Stats()
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		Backend:      s.config.Backend,
		DatabasePath: s.config.DBPath,
		SongCount:    st.Songs,
		Buckets:      st.Buckets,
		Occurrences:  st.Occurrences,
		MeanBucket:   st.MeanBucket,
		StdDevBucket: st.StdDev,
		MaxBucket:    st.MaxBucket,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs := s.service.Songs()
	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = SongDTO{ID: song.ID, Name: song.Name}
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: dtos,
		Count: len(dtos),
	})
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}
	for _, song := range s.service.Songs() {
		if song.ID == uint32(id) {
			s.respondJSON(w, http.StatusOK, SongDTO{ID: song.ID, Name: song.Name})
			return
		}
	}
	s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %d not found", id))
}

// saveUpload copies the multipart "audio" file into a fresh directory under
// the temp dir and returns its path. The file keeps its uploaded name, or the
// "name" form field when set, so it becomes the song's display name and the
// decoder can pick a format from the extension.
func (s *Server) saveUpload(r *http.Request, maxBytes int64, prefix string) (string, func(), error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return "", nil, fmt.Errorf("failed to parse form data: %w", err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", nil, fmt.Errorf("audio file is required: %w", err)
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if v := r.FormValue("name"); v != "" {
		ext := filepath.Ext(name)
		name = filepath.Base(v)
		if filepath.Ext(name) != ext {
			name += ext
		}
	}

	dir, err := os.MkdirTemp(s.config.TempDir, prefix+"_*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to save uploaded file: %w", err)
	}
	return path, cleanup, nil
}

func uploadStatus(err error) int {
	if errors.Is(err, audio.ErrNoData) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// handleAddSongFile handles POST /api/songs (multipart file upload)
func (s *Server) handleAddSongFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	path, cleanup, err := s.saveUpload(r, 100<<20, "upload")
	if err != nil {
		s.log.Errorf("Upload failed: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	song, err := s.service.AddFile(ctx, path)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, uploadStatus(err), fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully",
		ID:      song.ID,
		Name:    song.Name,
	})
}

// handleLoad handles POST /api/load. It rebuilds the index from a directory
// on the server and saves a snapshot when a store is configured.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.loading.TryLock() {
		s.respondError(w, http.StatusConflict, "A load is already running")
		return
	}
	defer s.loading.Unlock()

	start := time.Now()
	events, err := s.service.LoadDirectory(r.Context(), req.Dir)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := LoadResponse{Failed: []FailedFileDTO{}}
	for ev := range events {
		if ev.Err != nil {
			resp.Failed = append(resp.Failed, FailedFileDTO{Path: ev.Path, Error: ev.Err.Error()})
			continue
		}
		resp.Indexed++
		resp.Codes += ev.Codes
	}
	if err := r.Context().Err(); err != nil {
		s.log.Warnf("Load of %s cancelled: %v", req.Dir, err)
		return
	}

	meta, err := s.service.Save(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		resp.Snapshot = meta.ID
	case errors.Is(err, fingerprinter.ErrNoStore):
	default:
		s.log.Errorf("Failed to save snapshot: %v", err)
	}
	resp.Elapsed = time.Since(start).Round(time.Millisecond).String()

	s.log.Infof("Loaded %s: %d indexed, %d failed", req.Dir, resp.Indexed, len(resp.Failed))
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSnapshot handles POST /api/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.Save(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fingerprinter.ErrNoStore) {
			status = http.StatusServiceUnavailable
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, SnapshotResponse{
		ID:          meta.ID,
		Version:     meta.Version,
		Songs:       meta.Songs,
		Occurrences: meta.Occurrences,
		CreatedAt:   meta.CreatedAt.Format(time.RFC3339),
	})
}

// handleMatchFile handles POST /api/match (multipart file upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	path, cleanup, err := s.saveUpload(r, 50<<20, "query")
	if err != nil {
		s.log.Errorf("Upload failed: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	s.log.Infof("Matching uploaded file: %s", filepath.Base(path))
	matches, err := s.service.RecognizeFile(ctx, path)
	if err != nil {
		s.log.Errorf("Failed to match song: %v", err)
		s.respondError(w, uploadStatus(err), fmt.Sprintf("Failed to match song: %v", err))
		return
	}

	dtos := toMatchDTOs(matches)
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: dtos, Count: len(dtos)})
}

// handleMatchCodes handles POST /api/match/codes
func (s *Server) handleMatchCodes(w http.ResponseWriter, r *http.Request) {
	var req MatchCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Codes) >= MaxCodesSoftLimit {
		s.log.Warnf("Large code batch received: %d codes", len(req.Codes))
	}

	codes := make([]fingerprinter.Code, len(req.Codes))
	for i, c := range req.Codes {
		codes[i] = fingerprinter.Code{Slice: c.Slice, Hash: c.Hash}
	}
	matches, err := s.service.RecognizeCodes(codes)
	if err != nil {
		s.log.Errorf("Failed to match codes: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to match codes: %v", err))
		return
	}

	dtos := toMatchDTOs(matches)
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: dtos, Count: len(dtos)})
}
