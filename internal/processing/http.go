package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response body is carried in the
// error for logging.
const maxErrorBody = 1024

type httpRequest struct {
	Prompt   string   `json:"prompt"`
	Metadata Metadata `json:"metadata"`
}

// runHTTP POSTs {prompt, metadata} to spec.URL and returns the response body
// on a 2xx status.
func (e *Executor) runHTTP(ctx context.Context, spec Spec, prompt string, meta Metadata) (string, error) {
	payload, err := json.Marshal(httpRequest{Prompt: prompt, Metadata: meta})
	if err != nil {
		return "", fmt.Errorf("encode processor request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, spec.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build processor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("post %s: %w", spec.URL, ctx.Err())
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("post %s after %s: %w", spec.URL, spec.Timeout, ErrTimeout)
		}
		return "", fmt.Errorf("post %s: %w", spec.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("read %s response after %s: %w", spec.URL, spec.Timeout, ErrTimeout)
		}
		return "", fmt.Errorf("read %s response: %w", spec.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{Status: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	return string(body), nil
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
