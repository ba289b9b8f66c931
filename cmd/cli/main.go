package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/sojinoh/Audio-Fingerprinting/pkg/fingerprinter"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/utils"
)

// Global flags
var (
	dbPath    string
	backend   string
	tempDir   string
	workers   int
	useFFmpeg bool
	tagNames  bool
	window    string
	topN      int
)

func init() {
	// .env must be read before the flag defaults are computed.
	_ = godotenv.Load()

	flag.StringVar(&dbPath, "db", getEnvOrDefault("FP_DB_PATH", "fingerprints.sqlite3"), "Path to the snapshot database (file for sqlite, directory for badger)")
	flag.StringVar(&backend, "backend", getEnvOrDefault("FP_DB_BACKEND", fingerprinter.BackendSQLite), "Snapshot backend: sqlite or badger")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("FP_TEMP_DIR", os.TempDir()), "Directory for temporary ffmpeg conversion files")
	flag.IntVar(&workers, "workers", getEnvIntOrDefault("FP_WORKERS", runtime.NumCPU()), "Number of files decoded in parallel")
	flag.BoolVar(&useFFmpeg, "ffmpeg", false, "Convert unsupported inputs with ffmpeg")
	flag.BoolVar(&tagNames, "tags", false, "Name songs from embedded Title/Artist tags")
	flag.StringVar(&window, "window", "none", "Analysis window: none, hamming or hann")
	flag.IntVar(&topN, "top", 10, "Number of matches to print (0 prints all)")
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

// createService opens the snapshot store and builds a service around it.
func createService() (fingerprinter.Service, error) {
	store, err := fingerprinter.OpenStore(backend, dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", backend, err)
	}
	svc, err := fingerprinter.NewService(
		fingerprinter.WithStore(store),
		fingerprinter.WithTempDir(tempDir),
		fingerprinter.WithWorkers(workers),
		fingerprinter.WithFFmpeg(useFFmpeg),
		fingerprinter.WithTagNames(tagNames),
		fingerprinter.WithWindow(fingerprinter.ParseWindow(window)),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return svc, nil
}

// openIndex builds the service and restores the saved snapshot.
func openIndex(ctx context.Context) fingerprinter.Service {
	if !utils.FileExists(dbPath) {
		noIndex()
	}
	svc, err := createService()
	if err != nil {
		fail("Failed to create service", err)
	}
	if _, err := svc.Restore(ctx); err != nil {
		svc.Close()
		if errors.Is(err, fingerprinter.ErrNoSnapshot) {
			noIndex()
		}
		fail("Failed to restore index", err)
	}
	return svc
}

func noIndex() {
	fmt.Printf("📭 No index saved at %s yet. Run `load <dir>` first.\n", dbPath)
	os.Exit(1)
}

func fail(msg string, err error) {
	fmt.Printf("❌ %s: %v\n", msg, err)
	logger.GetLogger().Errorf("%s: %v", msg, err)
	os.Exit(1)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command := flag.Arg(0)
	logger.GetLogger().Debugf("Executing command: %s", command)

	switch command {
	case "load":
		handleLoad(ctx)
	case "add":
		handleAdd(ctx)
	case "match":
		handleMatch(ctx)
	case "list":
		handleList(ctx)
	case "stats":
		handleStats(ctx)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleLoad(ctx context.Context) {
	if flag.NArg() < 2 {
		fmt.Println("Usage: fingerprint load <dir>")
		os.Exit(1)
	}
	dir := flag.Arg(1)

	svc, err := createService()
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()

	start := time.Now()
	events, err := svc.LoadDirectory(ctx, dir)
	if err != nil {
		fail("Failed to read directory", err)
	}

	var (
		p       *mpb.Progress
		bar     *mpb.Bar
		indexed int
		failed  []fingerprinter.Event
	)
	for ev := range events {
		if bar == nil {
			p = mpb.New(mpb.WithWidth(64))
			bar = p.AddBar(int64(ev.Total),
				mpb.PrependDecorators(
					decor.Name("indexing "),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(
					decor.Percentage(),
					decor.Name(" "),
					decor.EwmaETA(decor.ET_STYLE_GO, 60),
				),
			)
		}
		bar.EwmaIncrement(ev.Elapsed)
		if ev.Err != nil {
			failed = append(failed, ev)
			continue
		}
		indexed++
	}
	if bar != nil {
		if !bar.Completed() {
			bar.Abort(false)
		}
		p.Wait()
	}

	for _, ev := range failed {
		fmt.Printf("⚠️  skipped %s: %v\n", ev.Path, ev.Err)
	}
	if ctx.Err() != nil {
		fmt.Println("Load interrupted; keeping the previous snapshot.")
		os.Exit(1)
	}

	meta, err := svc.Save(context.Background())
	if err != nil {
		fail("Failed to save index", err)
	}
	fmt.Printf("\n✅ Indexed %d song(s) in %s (%d skipped)\n", indexed, time.Since(start).Round(time.Millisecond), len(failed))
	fmt.Printf("   Snapshot: %s (%d occurrences)\n", meta.ID, meta.Occurrences)
}

func handleAdd(ctx context.Context) {
	if flag.NArg() < 2 {
		fmt.Println("Usage: fingerprint add <audio_file>")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		fail("Failed to create service", err)
	}
	defer svc.Close()
	if _, err := svc.Restore(ctx); err != nil && !errors.Is(err, fingerprinter.ErrNoSnapshot) {
		fail("Failed to restore index", err)
	}

	song, err := svc.AddFile(ctx, flag.Arg(1))
	if err != nil {
		fail("Failed to add song", err)
	}
	if _, err := svc.Save(ctx); err != nil {
		fail("Failed to save index", err)
	}
	fmt.Printf("✅ Added %q (ID: %d)\n", song.Name, song.ID)
}

func handleMatch(ctx context.Context) {
	if flag.NArg() < 2 {
		fmt.Println("Usage: fingerprint match <audio_file>")
		os.Exit(1)
	}

	svc := openIndex(ctx)
	defer svc.Close()

	results, err := svc.RecognizeFile(ctx, flag.Arg(1))
	if err != nil {
		fail("Failed to match", err)
	}
	if len(results) == 0 {
		fmt.Println("No matches found")
		return
	}

	shown := len(results)
	if topN > 0 && topN < shown {
		shown = topN
	}
	for i := 0; i < shown; i++ {
		fmt.Printf("%d: %s\n", i+1, results[i])
	}
	if len(results) > shown {
		fmt.Printf("... and %d more matches\n", len(results)-shown)
	}
}

func handleList(ctx context.Context) {
	svc := openIndex(ctx)
	defer svc.Close()

	songs := svc.Songs()
	if len(songs) == 0 {
		fmt.Println("📭 No songs in index")
		return
	}
	fmt.Printf("📚 %d song(s):\n\n", len(songs))
	for _, song := range songs {
		fmt.Printf("%4d  %s\n", song.ID, song.Name)
	}
}

func handleStats(ctx context.Context) {
	svc := openIndex(ctx)
	defer svc.Close()

	st := svc.Stats()
	fmt.Printf("Songs:        %d\n", st.Songs)
	fmt.Printf("Buckets:      %d\n", st.Buckets)
	fmt.Printf("Occurrences:  %d\n", st.Occurrences)
	fmt.Printf("Bucket mean:  %.2f (std dev %.2f, max %d)\n", st.MeanBucket, st.StdDev, st.MaxBucket)
}

func printUsage() {
	fmt.Println("fingerprint - audio fingerprint index and matcher")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  -db <path>        Snapshot location (env: FP_DB_PATH, default: fingerprints.sqlite3)")
	fmt.Println("  -backend <name>   sqlite or badger (env: FP_DB_BACKEND, default: sqlite)")
	fmt.Println("  -temp <dir>       Temporary directory for ffmpeg conversion (env: FP_TEMP_DIR)")
	fmt.Println("  -workers <n>      Parallel decoders during load (env: FP_WORKERS, default: CPU count)")
	fmt.Println("  -ffmpeg           Convert other formats and sample rates with ffmpeg")
	fmt.Println("  -tags             Name songs \"Title - Artist\" from embedded tags")
	fmt.Println("  -window <name>    none, hamming or hann (default: none)")
	fmt.Println("  -top <n>          Matches to print (default: 10, 0 for all)")
	fmt.Println("\nUsage:")
	fmt.Println("  fingerprint [global-options] load <dir>")
	fmt.Println("  fingerprint [global-options] add <audio_file>")
	fmt.Println("  fingerprint [global-options] match <audio_file>")
	fmt.Println("  fingerprint [global-options] list")
	fmt.Println("  fingerprint [global-options] stats")
	fmt.Println("\nExamples:")
	fmt.Println("  fingerprint load ./songs")
	fmt.Println("  fingerprint -backend badger -db ./index match clip.wav")
}
