package table

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d: %s", e.Status, e.Body)
}

// sendJSON sends body (nil for none) and returns the raw response body.
func sendJSON(ctx context.Context, client *http.Client, method, url string, body any, log *slog.Logger) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var rd io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		rd = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Error("table.http.send_error", "req_id", reqID, "method", method, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Warn("table.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	log.Debug("table.http.response",
		"req_id", reqID,
		"method", method,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// Retry policy for gateway errors and timeouts.
type Retry struct {
	MaxRetries int
	Backoff    float64       // wait = Unit * Backoff^attempt
	Unit       time.Duration // one second in production
}

func DefaultRetry() Retry {
	return Retry{MaxRetries: 3, Backoff: 2, Unit: time.Second}
}

func (r Retry) wait(attempt int) time.Duration {
	d := float64(r.Unit)
	for i := 0; i < attempt; i++ {
		d *= r.Backoff
	}
	return time.Duration(d)
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// do runs fn until it succeeds, fails with a non-retryable error, or retries run out.
func (r Retry) do(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !retryable(err) || attempt >= r.MaxRetries {
			return err
		}
		d := r.wait(attempt)
		log.Info("table.http.retry", "op", op, "attempt", attempt+1, "wait_ms", d.Milliseconds(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}
