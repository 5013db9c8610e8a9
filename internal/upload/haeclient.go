package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// HAEClient pulls workouts from the Health Auto Export TCP server (JSON-RPC
// 2.0). Each call opens a new connection; the server closes it after
// replying.
type HAEClient struct {
	addr    string
	timeout time.Duration
	// retryWait is the pause between reconnect probes after a failed call.
	retryWait time.Duration
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// haeDateFormat is the server's "yyyy-MM-dd HH:mm:ss Z".
const haeDateFormat = "2006-01-02 15:04:05 -0700"

// NewHAEClient creates a new client for the HAE TCP server.
func NewHAEClient(host string, port int) *HAEClient {
	return &HAEClient{
		addr:      net.JoinHostPort(host, strconv.Itoa(port)),
		timeout:   120 * time.Second,
		retryWait: 3 * time.Second,
	}
}

// QueryWorkouts fetches the workouts that started in [start, end). The result
// has the same shape as an ingest payload.
func (c *HAEClient) QueryWorkouts(ctx context.Context, start, end time.Time) (json.RawMessage, error) {
	return c.callTool(ctx, "workouts", map[string]any{
		"start":           start.Format(haeDateFormat),
		"end":             end.Format(haeDateFormat),
		"includeMetadata": false,
		"includeRoutes":   false,
	})
}

// QueryWorkoutsWithRetry retries QueryWorkouts up to maxAttempts times,
// waiting for the server to accept connections again between attempts.
func (c *HAEClient) QueryWorkoutsWithRetry(ctx context.Context, start, end time.Time, log *slog.Logger) (json.RawMessage, error) {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			log.Info("retrying workout query", "attempt", attempt+1)
			if err := c.waitForServer(ctx, log); err != nil {
				return nil, err
			}
		}
		result, err := c.QueryWorkouts(ctx, start, end)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Warn("workout query failed", "error", err)
	}
	return nil, lastErr
}

func (c *HAEClient) callTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	reqData, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "callTool",
		Params:  callToolParams{Name: tool, Arguments: args},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	defer conn.Close() //nolint:errcheck

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	// Newline-delimited framing.
	if _, err := conn.Write(append(reqData, '\n')); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	respData, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(respData) == 0 {
		return nil, fmt.Errorf("empty response from %s", c.addr)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("HAE error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// waitForServer polls until the server accepts connections again.
func (c *HAEClient) waitForServer(ctx context.Context, log *slog.Logger) error {
	dialer := net.Dialer{Timeout: 2 * time.Second}
	for i := range 10 {
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err == nil {
			conn.Close() //nolint:errcheck
			return nil
		}
		log.Info("waiting for HAE server", "attempt", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryWait):
		}
	}
	return fmt.Errorf("HAE server at %s did not come back", c.addr)
}
