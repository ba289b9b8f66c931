package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sojinoh/Audio-Fingerprinting/pkg/fingerprinter"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

var (
	port           int
	dbPath         string
	backend        string
	tempDir        string
	workers        int
	useFFmpeg      bool
	tagNames       bool
	allowedOrigins string
)

func init() {
	_ = godotenv.Load()

	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("FP_DB_PATH", "fingerprints.sqlite3"), "Snapshot location")
	flag.StringVar(&backend, "backend", getEnvOrDefault("FP_DB_BACKEND", fingerprinter.BackendSQLite), "Snapshot backend: sqlite or badger")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("FP_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.IntVar(&workers, "workers", getEnvIntOrDefault("FP_WORKERS", runtime.NumCPU()), "Parallel decoders during load")
	flag.BoolVar(&useFFmpeg, "ffmpeg", false, "Convert unsupported inputs with ffmpeg")
	flag.BoolVar(&tagNames, "tags", false, "Name songs from embedded Title/Artist tags")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	flag.Parse()
	log := logger.GetLogger().With("server")

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	store, err := fingerprinter.OpenStore(backend, dbPath)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", backend, err)
	}

	service, err := fingerprinter.NewService(
		fingerprinter.WithStore(store),
		fingerprinter.WithTempDir(tempDir),
		fingerprinter.WithWorkers(workers),
		fingerprinter.WithFFmpeg(useFFmpeg),
		fingerprinter.WithTagNames(tagNames),
		fingerprinter.WithLogger(log),
	)
	if err != nil {
		store.Close()
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	if meta, err := service.Restore(context.Background()); err == nil {
		log.Infof("Restored snapshot %s with %d songs", meta.ID, meta.Songs)
	} else if !errors.Is(err, fingerprinter.ErrNoSnapshot) {
		log.Warnf("Starting with an empty index: %v", err)
	}

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		Backend:        backend,
		TempDir:        tempDir,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config)
	server.log = log
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
