// Package adminclient talks to the moderation endpoints of a running
// review API. cmd/reviewctl is its only caller.
package adminclient

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"school_reviews/internal/adapters/observability"
	"school_reviews/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API URL %q must be absolute", base)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) Stats(ctx context.Context) (domain.Stats, error) {
	var out domain.Stats
	_, err := c.do(ctx, "stats", http.MethodGet, "/v1/admin/reviews", nil, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	var out domain.Review
	_, err := c.do(ctx, "get", http.MethodGet, "/v1/admin/reviews/"+url.PathEscape(string(id)), nil, &out)
	return out, err
}

func (c *Client) Approve(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	var out domain.Review
	_, err := c.do(ctx, "approve", http.MethodPost, "/v1/admin/reviews/"+url.PathEscape(string(id))+"/approve", nil, &out)
	return out, err
}

func (c *Client) Reject(ctx context.Context, id domain.ReviewID) (domain.Review, error) {
	var out domain.Review
	_, err := c.do(ctx, "reject", http.MethodPost, "/v1/admin/reviews/"+url.PathEscape(string(id))+"/reject", nil, &out)
	return out, err
}

// Export returns the raw export document and the file name the server
// suggested for it.
func (c *Client) Export(ctx context.Context) ([]byte, string, error) {
	var raw json.RawMessage
	hdr, err := c.do(ctx, "export", http.MethodGet, "/v1/admin/export", nil, &raw)
	if err != nil {
		return nil, "", err
	}
	name := "reviews_export.json"
	if _, params, perr := mime.ParseMediaType(hdr.Get("Content-Disposition")); perr == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return raw, name, nil
}

func (c *Client) Import(ctx context.Context, doc []byte) (domain.ExportStatistics, error) {
	var out domain.ExportStatistics
	_, err := c.do(ctx, "import", http.MethodPost, "/v1/admin/import", doc, &out)
	return out, err
}

func (c *Client) Clear(ctx context.Context) error {
	_, err := c.do(ctx, "clear", http.MethodDelete, "/v1/admin/reviews?confirm=yes", nil, nil)
	return err
}

// ---- Internals ----

var ErrUnauthorized = errors.New("adminclient: unauthorized")

type problem struct {
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
}

// do sends one request with client-side rate limiting and decodes the JSON
// answer into out. GETs are retried on 429 and transient 5xx; mutations only
// on 429, which the server sends before touching any data. Retry-After is
// honored when provided.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte, out any) (http.Header, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "reviewctl/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveAdmin(endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if method == http.MethodGet && i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveAdmin(endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			var err error
			if out != nil {
				err = json.NewDecoder(resp.Body).Decode(out)
			}
			resp.Body.Close()
			return resp.Header, err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return resp.Header, nil

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			lastErr = problemError(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			retryable := method == http.MethodGet || resp.StatusCode == http.StatusTooManyRequests
			if retryable && i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			err := problemError(resp)
			resp.Body.Close()
			return nil, err
		}
	}

	return nil, lastErr
}

// problemError turns a problem+json answer into an error wrapping the
// matching domain sentinel.
func problemError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var p problem
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &p) == nil && (p.Title != "" || p.Detail != "") {
		msg = strings.TrimSpace(p.Title + ": " + p.Detail)
		if len(p.Errors) > 0 {
			return &domain.ValidationError{Fields: p.Errors}
		}
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", msg, domain.ErrValidation)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", msg, domain.ErrStorage)
	}
	return fmt.Errorf("bad status %d: %s", resp.StatusCode, msg)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
