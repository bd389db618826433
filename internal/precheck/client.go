package precheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ClientConfig holds validator client settings.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	DefaultThreads    int
}

// Client is the HTTP validator.
//
//	GET  {base}/health -> 2xx when ready
//	POST {base}/check  {"account","format","level"} -> {"valid","reason"}
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	threads    int
	timeout    time.Duration
	health     singleflight.Group
}

// NewClient creates a validator client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 50
	}
	threads := cfg.DefaultThreads
	if threads <= 0 {
		threads = 10
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		threads:    threads,
		timeout:    timeout,
	}
}

type checkRequest struct {
	Account string `json:"account"`
	Format  string `json:"format,omitempty"`
	Level   int    `json:"level"`
}

// HealthCheck probes the validator. Concurrent probes share one request,
// which runs detached from any single caller's cancellation and is bounded
// by the client timeout. A caller whose ctx ends stops waiting on its own.
func (c *Client) HealthCheck(ctx context.Context) error {
	ch := c.health.DoChan("health", func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(pctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: health returned %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

// ValidateBatch checks every content with at most opts.Concurrency requests in flight.
func (c *Client) ValidateBatch(ctx context.Context, contents []string, opts Options) ([]Verdict, error) {
	verdicts := make([]Verdict, len(contents))
	if len(contents) == 0 {
		return verdicts, nil
	}

	threads := opts.Concurrency
	if threads <= 0 {
		threads = c.threads
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, content := range contents {
		i, content := i, content
		g.Go(func() error {
			v, err := c.check(gctx, checkRequest{Account: content, Format: opts.Format, Level: opts.Level})
			if err != nil {
				return err
			}
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := 0
	for _, v := range verdicts {
		if v.Valid {
			valid++
		}
	}
	log.Printf("[Precheck] Batch complete: %d/%d valid (threads=%d, %s)", valid, len(contents), threads, time.Since(start))
	return verdicts, nil
}

func (c *Client) check(ctx context.Context, body checkRequest) (Verdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Verdict{}, fmt.Errorf("%w: rate limit wait: %v", ErrUnavailable, err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check", bytes.NewReader(data))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Verdict{}, fmt.Errorf("%w: check returned %d", ErrUnavailable, resp.StatusCode)
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Verdict{}, fmt.Errorf("%w: decode verdict: %v", ErrUnavailable, err)
	}
	return v, nil
}

var _ Validator = (*Client)(nil)
