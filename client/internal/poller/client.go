package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const maxResponseBodySize = 1 << 20 // 1MB

// errBodyTooLarge rejects a status body that would not fit the display
// in full. A partial fragment could hide the outage token.
var errBodyTooLarge = errors.New("body exceeds 1MB")

// Response is the outcome of one status request.
type Response struct {
	// Body is the response body, capped at 1MB.
	Body []byte

	// StatusCode is zero when the request failed before a response arrived.
	StatusCode int

	// RequestID is the X-Request-ID sent with the request.
	RequestID string

	Latency time.Duration

	// Err is set when the request could not be completed.
	Err error
}

// OK reports whether the request completed with HTTP 200.
func (r Response) OK() bool {
	return r.Err == nil && r.StatusCode == http.StatusOK
}

// fetch issues a GET to url bounded by timeout. It always returns a
// Response; failures are reported in Response.Err.
func fetch(ctx context.Context, client *http.Client, url string, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	reqID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{RequestID: reqID, Latency: time.Since(start), Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("X-Request-ID", reqID)

	resp, err := client.Do(req)
	if err != nil {
		return Response{RequestID: reqID, Latency: time.Since(start), Err: fmt.Errorf("http get: %w", err)}
	}
	defer resp.Body.Close()

	// One byte past the cap tells a full-size body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err == nil && len(body) > maxResponseBodySize {
		err = errBodyTooLarge
	}
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			RequestID:  reqID,
			Latency:    time.Since(start),
			Err:        fmt.Errorf("read body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		RequestID:  reqID,
		Latency:    time.Since(start),
	}
}
