package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "fitlog server URL (e.g. https://fitlog.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("FITLOG_API_KEY"), "ingest API key (default $FITLOG_API_KEY)")
	exportPath := flag.String("path", "", "directory with Alpha Progression *.csv and Health Auto Export *.json files")
	dryRun := flag.Bool("dry-run", false, "parse but don't send to server")
	haeHost := flag.String("hae-host", "", "pull workouts from the Health Auto Export TCP server at this host")
	haePort := flag.Int("hae-port", 9000, "Health Auto Export TCP server port")
	start := flag.String("start", "", "first day to pull (YYYY-MM-DD); default resumes from the last pull")
	end := flag.String("end", "", "last day to pull (YYYY-MM-DD); default today")
	chunkDays := flag.Int("chunk-days", 7, "days per HAE query")
	stateDir := flag.String("state-dir", "", "state directory (default ~/.fitlog-upload)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitlog-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" && *haeHost == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitlog-upload -server <URL> -api-key <key> (-path <dir> | -hae-host <host>) [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}
	*serverURL = strings.TrimRight(*serverURL, "/")

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".fitlog-upload")
	}
	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close() //nolint:errcheck

	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: files are parsed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(client, state, *exportPath, *dryRun, log)

	var stats *upload.Stats
	if *haeHost != "" {
		from, to, err := pullRange(state, *start, *end)
		if err != nil {
			log.Error("invalid pull range", "error", err)
			os.Exit(1)
		}
		stats, err = uploader.Pull(ctx, upload.NewHAEClient(*haeHost, *haePort), from, to, *chunkDays)
		if err != nil {
			log.Error("pull failed", "error", err)
			printStats(stats)
			os.Exit(1)
		}
	} else {
		info, err := os.Stat(*exportPath)
		if err != nil || !info.IsDir() {
			log.Error("export directory not found", "path", *exportPath)
			os.Exit(1)
		}
		stats, err = uploader.Run(ctx)
		if err != nil {
			log.Error("upload failed", "error", err)
			printStats(stats)
			os.Exit(1)
		}
	}

	printStats(stats)
	log.Info("upload complete")
}

// pullRange resolves -start and -end into a half-open [from, to) range. An
// empty start resumes from the last pull, or 30 days back on the first run.
func pullRange(state *upload.StateDB, start, end string) (time.Time, time.Time, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	to := today
	if end != "" {
		t, err := time.Parse(models.DateLayout, end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing -end: %w", err)
		}
		to = t
	}
	to = to.AddDate(0, 0, 1)

	if start == "" {
		last, err := state.GetSyncState(upload.SyncKeyHAEWorkouts)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("reading sync state: %w", err)
		}
		start = last
	}
	from := today.AddDate(0, 0, -30)
	if start != "" {
		t, err := time.Parse(models.DateLayout, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing start %q: %w", start, err)
		}
		from = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end", from.Format(models.DateLayout))
	}
	return from, to, nil
}

func printStats(stats *upload.Stats) {
	if stats == nil {
		return
	}
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	if stats.HAEChunks > 0 {
		fmt.Printf("  HAE chunks:       %d\n", stats.HAEChunks)
		fmt.Printf("  HAE bytes:        %d\n", stats.HAEBytes)
	} else {
		fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
		fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
		fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
		fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	}
	fmt.Println()
	fmt.Printf("  Workouts sent:    %d\n", stats.WorkoutsSent)
	fmt.Printf("  Inserted:         %d\n", stats.WorkoutsInserted)
	fmt.Printf("  Updated:          %d\n", stats.WorkoutsUpdated)
	fmt.Println()
}
