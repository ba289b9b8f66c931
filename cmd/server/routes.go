package main

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/health/metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/songs", s.handleListSongs)
	mux.HandleFunc("POST /api/songs", s.handleAddSongFile)
	mux.HandleFunc("GET /api/songs/{id}", s.handleGetSong)

	mux.HandleFunc("POST /api/load", s.handleLoad)
	mux.HandleFunc("POST /api/snapshot", s.handleSnapshot)

	mux.HandleFunc("POST /api/match", s.handleMatchFile)
	mux.HandleFunc("POST /api/match/codes", s.handleMatchCodes)

	return corsMiddleware(s.config.AllowedOrigins)(loggingMiddleware(mux))
}

// corsMiddleware answers preflight requests and sets CORS headers for origins
// in allowedOrigins. An empty list or a lone "*" admits every origin.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	anyOrigin := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			_, listed := origins[origin]
			switch {
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case listed:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if anyOrigin || listed {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				h.Set("Access-Control-Max-Age", "3600")
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs method, path, caller, status and latency at debug level.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.GetLogger().Debugf("%s %s from %s -> %d (%s)",
			r.Method, r.URL.Path, clientIP(r), rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("Fingerprint server starting on %s", addr)
	s.log.Infof("   Snapshot: %s (%s)", s.config.DBPath, s.config.Backend)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health                  - Health check")
	s.log.Infof("   GET    /api/health/metrics      - Index metrics")
	s.log.Infof("   GET    /api/songs               - List all songs")
	s.log.Infof("   POST   /api/songs               - Add song from file upload")
	s.log.Infof("   GET    /api/songs/{id}          - Get song by ID")
	s.log.Infof("   POST   /api/load                - Rebuild index from a server directory")
	s.log.Infof("   POST   /api/snapshot            - Save the index")
	s.log.Infof("   POST   /api/match               - Match audio file upload")
	s.log.Infof("   POST   /api/match/codes         - Match precomputed codes")

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
