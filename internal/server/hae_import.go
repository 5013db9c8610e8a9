package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/upload"
)

// sourceHAETCP labels server-side pulls in import logs and metrics.
const sourceHAETCP = "hae_tcp"

const (
	defaultHAEPort   = 9000
	defaultChunkDays = 7
)

// haeImportState tracks a running HAE TCP import.
type haeImportState struct {
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	doneCh    chan struct{} // closed when the goroutine exits
	step      int
	total     int
	chunk     string
	done      bool
	err       error
	logID     int64
	startedAt time.Time

	result        ingest.Result
	chunksSkipped int
	bytesFetched  int64
	haeHost       string
	haePort       int

	subs   map[chan sseEvent]struct{}
	subsMu sync.Mutex
}

// sseEvent is an SSE message to send to subscribers.
type sseEvent struct {
	Event string
	Data  string
}

func (st *haeImportState) broadcast(event sseEvent) {
	st.subsMu.Lock()
	defer st.subsMu.Unlock()
	for ch := range st.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}

func (st *haeImportState) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 32)
	st.subsMu.Lock()
	st.subs[ch] = struct{}{}
	st.subsMu.Unlock()
	return ch
}

func (st *haeImportState) unsubscribe(ch chan sseEvent) {
	st.subsMu.Lock()
	delete(st.subs, ch)
	st.subsMu.Unlock()
}

// snapshot returns the counters shown by the status endpoint and the
// completion event. Callers hold st.mu.
func (st *haeImportState) snapshot() map[string]any {
	return map[string]any{
		"step":              st.step,
		"total":             st.total,
		"chunk":             st.chunk,
		"workouts_received": st.result.WorkoutsReceived,
		"workouts_inserted": st.result.WorkoutsInserted,
		"workouts_updated":  st.result.WorkoutsUpdated,
		"workouts_skipped":  st.result.WorkoutsSkipped,
		"sets_inserted":     st.result.SetsInserted,
		"chunks_skipped":    st.chunksSkipped,
		"bytes_fetched":     st.bytesFetched,
	}
}

// haeImportRequest is the JSON body for starting an HAE TCP import.
type haeImportRequest struct {
	HAEHost   string `json:"hae_host"`
	HAEPort   int    `json:"hae_port"`
	Start     string `json:"start"` // YYYY-MM-DD
	End       string `json:"end"`   // YYYY-MM-DD, inclusive
	ChunkDays int    `json:"chunk_days"`
	DryRun    bool   `json:"dry_run"`
}

// chunkCount is the number of chunkDays windows needed to cover [start, end).
func chunkCount(start, end time.Time, chunkDays int) int {
	chunk := time.Duration(chunkDays) * 24 * time.Hour
	n := 0
	for cs := start; cs.Before(end); cs = cs.Add(chunk) {
		n++
	}
	return n
}

func (s *Server) handleStartHAEImport(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req haeImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.HAEHost == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hae_host is required"})
		return
	}
	if req.HAEPort == 0 {
		req.HAEPort = defaultHAEPort
	}
	if req.ChunkDays <= 0 {
		req.ChunkDays = defaultChunkDays
	}

	startDate, err := time.Parse(models.DateLayout, req.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start date (YYYY-MM-DD)"})
		return
	}
	endDate, err := time.Parse(models.DateLayout, req.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end date (YYYY-MM-DD)"})
		return
	}
	// Cover the whole end day.
	endDate = endDate.AddDate(0, 0, 1)
	if !startDate.Before(endDate) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must not be after end"})
		return
	}

	s.importMu.Lock()
	if s.activeImport != nil && s.activeImport.running {
		prev := s.activeImport
		s.importMu.Unlock()
		// A cancelled import may still be winding down.
		select {
		case <-prev.doneCh:
		case <-time.After(5 * time.Second):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "an import is already running"})
			return
		}
		s.importMu.Lock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &haeImportState{
		running:   true,
		cancel:    cancel,
		doneCh:    make(chan struct{}),
		total:     chunkCount(startDate, endDate, req.ChunkDays),
		startedAt: time.Now(),
		subs:      make(map[chan sseEvent]struct{}),
		haeHost:   req.HAEHost,
		haePort:   req.HAEPort,
	}
	state.logID = s.beginImport(r.Context(), uid, sourceHAETCP, map[string]any{
		"hae_host":   req.HAEHost,
		"hae_port":   req.HAEPort,
		"start":      req.Start,
		"end":        req.End,
		"chunk_days": req.ChunkDays,
		"dry_run":    req.DryRun,
	})
	s.activeImport = state
	s.importMu.Unlock()

	go s.runHAEImport(ctx, state, uid, req, startDate, endDate)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "started",
		"total_steps": state.total,
		"log_id":      state.logID,
	})
}

func (s *Server) runHAEImport(ctx context.Context, state *haeImportState, userID int, req haeImportRequest, start, end time.Time) {
	defer func() {
		state.mu.Lock()
		state.running = false
		state.done = true
		state.mu.Unlock()
		close(state.doneCh)
	}()

	client := upload.NewHAEClient(req.HAEHost, req.HAEPort)
	chunkDur := time.Duration(req.ChunkDays) * 24 * time.Hour
	step := 0

	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.Add(chunkDur) {
		if ctx.Err() != nil {
			break
		}
		chunkEnd := chunkStart.Add(chunkDur)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		step++

		chunkRange := chunkStart.Format(models.DateLayout) + ".." + chunkEnd.Format(models.DateLayout)
		state.mu.Lock()
		state.step = step
		state.chunk = chunkRange
		state.mu.Unlock()

		state.broadcast(sseEvent{
			Event: "progress",
			Data: mustJSON(map[string]any{
				"step":  step,
				"total": state.total,
				"chunk": chunkRange,
			}),
		})

		raw, err := client.QueryWorkoutsWithRetry(ctx, chunkStart, chunkEnd, s.log)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Warn("HAE TCP workout query failed, skipping", "chunk", chunkRange, "error", err)
			s.skipChunk(state)
			continue
		}
		state.mu.Lock()
		state.bytesFetched += int64(len(raw))
		state.mu.Unlock()
		if len(raw) == 0 || string(raw) == "null" || req.DryRun {
			continue
		}

		ir, err := s.ingestRawHAEResult(ctx, raw, userID)
		if err != nil {
			s.log.Warn("workout ingest failed", "chunk", chunkRange, "error", err)
			s.skipChunk(state)
			continue
		}
		state.mu.Lock()
		state.result.WorkoutsReceived += ir.WorkoutsReceived
		state.result.WorkoutsInserted += ir.WorkoutsInserted
		state.result.WorkoutsUpdated += ir.WorkoutsUpdated
		state.result.WorkoutsSkipped += ir.WorkoutsSkipped
		state.result.SetsReceived += ir.SetsReceived
		state.result.SetsInserted += ir.SetsInserted
		state.mu.Unlock()
	}

	var importErr error
	if ctx.Err() != nil {
		importErr = fmt.Errorf("import cancelled: %w", ctx.Err())
	}

	state.mu.Lock()
	state.err = importErr
	summary := state.snapshot()
	result := state.result
	meta := map[string]any{
		"bytes_fetched":  state.bytesFetched,
		"chunks_skipped": state.chunksSkipped,
		"hae_host":       state.haeHost,
		"hae_port":       state.haePort,
		"dry_run":        req.DryRun,
	}
	state.mu.Unlock()

	if importErr != nil {
		state.broadcast(sseEvent{Event: "error", Data: mustJSON(map[string]string{"error": importErr.Error()})})
	} else {
		state.broadcast(sseEvent{Event: "complete", Data: mustJSON(summary)})
	}
	s.finishImport(state.logID, userID, sourceHAETCP, &result, importErr, state.startedAt, meta)
}

func (s *Server) skipChunk(state *haeImportState) {
	state.mu.Lock()
	state.chunksSkipped++
	state.mu.Unlock()
}

// ingestRawHAEResult decodes a JSON-RPC result, which has the ingest payload
// shape, and hands it to the HAE provider.
func (s *Server) ingestRawHAEResult(ctx context.Context, raw json.RawMessage, userID int) (*ingest.Result, error) {
	var payload models.HAEPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling HAE result: %w", err)
	}
	return s.hae.Ingest(ctx, &payload, userID)
}

func (s *Server) handleCancelHAEImport(w http.ResponseWriter, r *http.Request) {
	s.importMu.Lock()
	if s.activeImport == nil || !s.activeImport.running {
		s.importMu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no import running"})
		return
	}
	state := s.activeImport
	state.cancel()
	s.importMu.Unlock()

	select {
	case <-state.doneCh:
	case <-time.After(3 * time.Second):
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleHAEImportStatus(w http.ResponseWriter, r *http.Request) {
	s.importMu.Lock()
	state := s.activeImport
	s.importMu.Unlock()

	if state == nil {
		writeJSON(w, http.StatusOK, map[string]any{"running": false})
		return
	}

	state.mu.Lock()
	resp := state.snapshot()
	resp["running"] = state.running
	resp["done"] = state.done
	resp["log_id"] = state.logID
	if state.err != nil {
		resp["error"] = state.err.Error()
	}
	state.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHAEImportEvents(w http.ResponseWriter, r *http.Request) {
	s.importMu.Lock()
	state := s.activeImport
	s.importMu.Unlock()

	if state == nil || !state.running {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no import running"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := state.subscribe()
	defer state.unsubscribe(ch)

	state.mu.Lock()
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(map[string]any{ //nolint:errcheck
		"step":  state.step,
		"total": state.total,
		"chunk": state.chunk,
	}))
	state.mu.Unlock()
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-state.doneCh:
			// Flush whatever is still buffered.
			for {
				select {
				case evt := <-ch:
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data) //nolint:errcheck
				default:
					flusher.Flush()
					return
				}
			}
		case evt := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data) //nolint:errcheck
			flusher.Flush()
			if evt.Event == "complete" || evt.Event == "error" {
				return
			}
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
