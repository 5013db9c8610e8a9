// Package upload sends Alpha Progression and Health Auto Export files to a
// fitlog server.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/models"
)

// SyncKeyHAEWorkouts stores the end date of the last successful HAE pull.
const SyncKeyHAEWorkouts = "hae_last_workouts_sync"

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	WorkoutsSent     int
	WorkoutsInserted int
	WorkoutsUpdated  int

	HAEChunks int
	HAEBytes  int64
}

func (s *Stats) add(r *ingest.Result) {
	s.WorkoutsInserted += r.WorkoutsInserted
	s.WorkoutsUpdated += r.WorkoutsUpdated
}

// Uploader walks an export directory and POSTs each new file to the server.
type Uploader struct {
	client *Client
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{client: client, state: state, dir: dir, dryRun: dryRun, log: log}
}

// export is a file the server knows how to ingest.
type export struct {
	relPath     string
	path        string
	endpoint    string
	contentType string
}

// classify maps a file to its ingest endpoint by extension.
func classify(path string) (endpoint, contentType string, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return AlphaPath, "text/csv", true
	case ".json":
		return HAEPath, "application/json", true
	}
	return "", "", false
}

// Run uploads every *.csv and *.json file below the directory. A failing
// file is logged and counted; it does not stop the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	var exports []export
	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != u.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		endpoint, contentType, ok := classify(path)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(u.dir, path)
		if err != nil {
			return err
		}
		exports = append(exports, export{relPath: rel, path: path, endpoint: endpoint, contentType: contentType})
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.dir, err)
	}

	u.stats.FilesTotal = len(exports)
	for _, e := range exports {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.processFile(ctx, e); err != nil {
			u.log.Error("upload failed", "file", e.relPath, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, e export) error {
	info, err := os.Stat(e.path)
	if err != nil {
		return err
	}
	hash, err := HashFile(e.path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	done, err := u.state.IsUploaded(e.relPath, info.Size(), hash)
	if err != nil {
		return err
	}
	if done {
		u.log.Debug("unchanged, skipping", "file", e.relPath)
		u.stats.FilesSkipped++
		return nil
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		return err
	}
	workouts, err := countWorkouts(e.endpoint, data)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	if u.dryRun {
		u.log.Info("dry-run: would send", "file", e.relPath, "endpoint", e.endpoint, "workouts", workouts)
		u.stats.WorkoutsSent += workouts
		return nil
	}

	res, err := u.client.Send(ctx, e.endpoint, e.contentType, data)
	if err != nil {
		return err
	}
	u.stats.WorkoutsSent += workouts
	u.stats.add(res)
	u.stats.FilesUploaded++
	u.log.Info("uploaded", "file", e.relPath, "inserted", res.WorkoutsInserted, "updated", res.WorkoutsUpdated)

	if err := u.state.MarkUploaded(e.relPath, info.Size(), hash); err != nil {
		u.log.Warn("failed to mark uploaded", "file", e.relPath, "error", err)
	}
	return nil
}

// countWorkouts parses an export locally so malformed files are caught
// before anything is sent.
func countWorkouts(endpoint string, data []byte) (int, error) {
	if endpoint == AlphaPath {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		return len(sessions), err
	}
	var p models.HAEPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, err
	}
	return len(p.Data.Workouts), nil
}

// Pull queries the HAE TCP server for workouts in chunkDays windows between
// start and end and forwards each non-empty chunk to the server.
func (u *Uploader) Pull(ctx context.Context, hae *HAEClient, start, end time.Time, chunkDays int) (*Stats, error) {
	chunk := time.Duration(chunkDays) * 24 * time.Hour
	u.log.Info("pulling HAE workouts",
		"start", start.Format(models.DateLayout),
		"end", end.Format(models.DateLayout),
		"chunk_days", chunkDays)

	for from := start; from.Before(end); from = from.Add(chunk) {
		to := from.Add(chunk)
		if to.After(end) {
			to = end
		}

		result, err := hae.QueryWorkoutsWithRetry(ctx, from, to, u.log)
		if err != nil {
			if ctx.Err() != nil {
				return &u.stats, ctx.Err()
			}
			u.log.Warn("skipping chunk", "from", from.Format(models.DateLayout), "to", to.Format(models.DateLayout), "error", err)
			continue
		}
		if len(result) == 0 || string(result) == "null" {
			continue
		}

		workouts, err := countWorkouts(HAEPath, result)
		if err != nil {
			return &u.stats, fmt.Errorf("decoding chunk from %s: %w", from.Format(models.DateLayout), err)
		}
		u.stats.HAEChunks++
		u.stats.HAEBytes += int64(len(result))
		u.stats.WorkoutsSent += workouts
		if workouts == 0 {
			continue
		}

		if u.dryRun {
			u.log.Info("dry-run: would forward workouts", "count", workouts, "bytes", len(result))
			continue
		}
		res, err := u.client.Send(ctx, HAEPath, "application/json", result)
		if err != nil {
			return &u.stats, fmt.Errorf("forwarding workouts: %w", err)
		}
		u.stats.add(res)
	}

	if !u.dryRun {
		if err := u.state.SetSyncState(SyncKeyHAEWorkouts, end.Format(models.DateLayout)); err != nil {
			u.log.Warn("failed to save sync state", "error", err)
		}
	}
	return &u.stats, nil
}
