package server

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/storage"
)

// fakeHAE answers every JSON-RPC call with the same workouts payload.
func fakeHAE(t *testing.T, payload string) (string, int, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() }) //nolint:errcheck

	var calls atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			calls.Add(1)
			if _, err := bufio.NewReader(conn).ReadBytes('\n'); err == nil {
				conn.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + payload + `}`)) //nolint:errcheck
			}
			conn.Close() //nolint:errcheck
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, &calls
}

func waitImport(t *testing.T, s *Server) {
	t.Helper()
	s.importMu.Lock()
	state := s.activeImport
	s.importMu.Unlock()
	if state == nil {
		t.Fatal("no import started")
	}
	select {
	case <-state.doneCh:
	case <-time.After(10 * time.Second):
		t.Fatal("import did not finish")
	}
}

// TestHAETCPImport pulls two weekly chunks from a fake HAE server and checks
// the progress state and the finished import log.
func TestHAETCPImport(t *testing.T) {
	host, port, calls := fakeHAE(t, haeIngestBody)
	store := newFakeStore()
	s, _ := newTestServer(store)

	body := `{"hae_host":"` + host + `","hae_port":` + strconv.Itoa(port) + `,"start":"2025-11-01","end":"2025-11-10"}`
	rec := do(s, http.MethodPost, "/api/v1/import/hae-tcp", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	var started struct {
		TotalSteps int   `json:"total_steps"`
		LogID      int64 `json:"log_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.TotalSteps != 2 {
		t.Errorf("total_steps = %d, want 2", started.TotalSteps)
	}

	waitImport(t, s)
	if got := calls.Load(); got != 2 {
		t.Errorf("HAE calls = %d, want 2", got)
	}

	log := store.importLog(started.LogID)
	if log.Source != sourceHAETCP || log.Status != storage.ImportSuccess {
		t.Errorf("log = %s/%s, want hae_tcp/success", log.Source, log.Status)
	}
	// Both chunks return the same workout id: one insert, one update.
	if log.WorkoutsInserted != 1 || log.WorkoutsUpdated != 1 {
		t.Errorf("inserted/updated = %d/%d, want 1/1", log.WorkoutsInserted, log.WorkoutsUpdated)
	}

	rec = do(s, http.MethodGet, "/api/v1/import/hae-tcp", "")
	var status map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["running"] != false || status["done"] != true {
		t.Errorf("status = %v", status)
	}
}

// TestHAETCPImportDryRun verifies a dry run fetches without storing.
func TestHAETCPImportDryRun(t *testing.T) {
	host, port, _ := fakeHAE(t, haeIngestBody)
	store := newFakeStore()
	s, _ := newTestServer(store)

	body := `{"hae_host":"` + host + `","hae_port":` + strconv.Itoa(port) + `,"start":"2025-11-01","end":"2025-11-01","dry_run":true}`
	if rec := do(s, http.MethodPost, "/api/v1/import/hae-tcp", body); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	waitImport(t, s)

	if len(store.sourced) != 0 {
		t.Errorf("stored %d workouts on a dry run", len(store.sourced))
	}
}

// TestHAETCPImportValidation covers the request checks of the start endpoint.
func TestHAETCPImportValidation(t *testing.T) {
	s, _ := newTestServer(newFakeStore())
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing host", `{"start":"2025-11-01","end":"2025-11-02"}`},
		{"bad start", `{"hae_host":"phone","start":"11/01/2025","end":"2025-11-02"}`},
		{"bad end", `{"hae_host":"phone","start":"2025-11-01","end":""}`},
		{"reversed", `{"hae_host":"phone","start":"2025-11-05","end":"2025-11-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(s, http.MethodPost, "/api/v1/import/hae-tcp", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// TestHAETCPImportIdle verifies status, cancel and events with no import.
func TestHAETCPImportIdle(t *testing.T) {
	s, _ := newTestServer(newFakeStore())

	rec := do(s, http.MethodGet, "/api/v1/import/hae-tcp", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/api/v1/import/hae-tcp", ""); rec.Code != http.StatusNotFound {
		t.Errorf("cancel = %d, want 404", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/v1/import/hae-tcp/events", ""); rec.Code != http.StatusNotFound {
		t.Errorf("events = %d, want 404", rec.Code)
	}
}

// TestChunkCount verifies the step total for partial trailing chunks.
func TestChunkCount(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}
	tests := []struct {
		start, end string
		days       int
		want       int
	}{
		{"2025-11-01", "2025-11-02", 7, 1},
		{"2025-11-01", "2025-11-08", 7, 1},
		{"2025-11-01", "2025-11-09", 7, 2},
		{"2025-11-01", "2025-11-01", 7, 0},
		{"2025-11-01", "2025-11-04", 1, 3},
	}
	for _, tt := range tests {
		if got := chunkCount(day(tt.start), day(tt.end), tt.days); got != tt.want {
			t.Errorf("chunkCount(%s, %s, %d) = %d, want %d", tt.start, tt.end, tt.days, got, tt.want)
		}
	}
}
