// Package api is the HTTP client for the cleaning backend. It issues the
// three remote operations (fetch batch, validate, submit) and normalizes
// every failure into a typed *Error carrying retry hints.
//
// The client performs no retries of its own; retry decisions belong to
// the retry package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/awsafahamed/lumicore-data-cleaning-FE/internal/logging"
)

// maxErrorBody caps how much of a failed response body is read for the
// error message.
const maxErrorBody = 64 * 1024

// Client talks to the cleaning backend. All three endpoints share one
// base URL. A small rate limiter paces requests so a held-down refresh
// key cannot storm the collaborator.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client for the given base URL. The trailing slash
// on baseURL is optional.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

// FetchBatch retrieves the batch with the given id. The returned Batch is
// a wholesale snapshot; the caller owns it.
func (c *Client) FetchBatch(ctx context.Context, batchID string) (*Batch, error) {
	path := "/data/?batch=" + url.QueryEscape(batchID)
	var batch Batch
	if err := c.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Validate posts the full record buffer for server-side cleaning. The
// response's cleaned_items align positionally with the items sent.
func (c *Client) Validate(ctx context.Context, records []Record) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := c.do(ctx, http.MethodPost, "/validate/", ValidateRequest{Items: records}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit posts cleaned records for scoring.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/submit/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues one request and decodes a 2xx response into out. Anything
// else comes back as *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Message: fmt.Sprintf("request cancelled: %v", err)}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: fmt.Sprintf("marshal request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Message: fmt.Sprintf("create request: %v", err)}
	}
	// Always declared, never assumed from defaults.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Error("request failed", "method", method, "path", path, "err", err)
		return &Error{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := parseFailure(resp.StatusCode, resp.Status, raw)
		logging.Warn("non-2xx response", "method", method, "path", path,
			"status", resp.StatusCode, "upstream", apiErr.UpstreamStatus,
			"retry_after", apiErr.RetryAfter)
		return apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// parseFailure builds the typed error for a non-2xx response. The body is
// parsed best-effort as structured error data; every field of the shape
// is optional, so a body carrying only retry hints still counts as
// structured. An unparseable or empty body degrades to the raw status
// line plus body text.
func parseFailure(statusCode int, statusLine string, body []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb != (errorBody{}) {
		msg := fmt.Sprintf("HTTP %d", statusCode)
		if eb.Message != "" {
			msg += ": " + eb.Message
		}
		if eb.Detail != "" {
			msg += " (" + eb.Detail + ")"
		}
		return &Error{
			StatusCode:     statusCode,
			Message:        msg,
			RetryAfter:     time.Duration(eb.RetryAfterMs) * time.Millisecond,
			UpstreamStatus: eb.UpstreamStatus,
		}
	}

	msg := statusLine
	if text := strings.TrimSpace(string(body)); text != "" {
		msg += ": " + text
	}
	return &Error{StatusCode: statusCode, Message: msg}
}
