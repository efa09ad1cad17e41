// Package feed loads the intensity point feed onto the map overlay.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const maxFeedBytes = 16 << 20

var (
	ErrCircuitOpen   = errors.New("feed: circuit breaker open")
	errUnexpected    = errors.New("unexpected status code")
	errFeedTooLarge  = errors.New("feed exceeds size limit")
	errEmptyLocation = errors.New("feed source is empty")
)

// Fetcher reads the raw feed text from an http(s) URL or a local file.
type Fetcher struct {
	source   string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	maxBytes int64
}

// NewFetcher creates a fetcher for source. Remote fetches share one breaker
// that opens after three consecutive failures.
func NewFetcher(source string, timeout time.Duration) *Fetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "feed",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
	return &Fetcher{
		source:   source,
		client:   &http.Client{Timeout: timeout},
		circuit:  cb,
		maxBytes: maxFeedBytes,
	}
}

// Source returns the configured location.
func (f *Fetcher) Source() string {
	return f.source
}

// Fetch returns the feed contents.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	switch {
	case f.source == "":
		return "", errEmptyLocation
	case isRemote(f.source):
		return f.fetchRemote(ctx)
	default:
		return f.readFile()
	}
}

func (f *Fetcher) readFile() (string, error) {
	file, err := os.Open(f.source)
	if err != nil {
		return "", fmt.Errorf("read feed file: %w", err)
	}
	defer file.Close()

	body, err := f.readLimited(file)
	if err != nil {
		return "", fmt.Errorf("read feed file %s: %w", f.source, err)
	}
	return body, nil
}

// readLimited reads at most maxBytes from r and fails if there is more.
func (f *Fetcher) readLimited(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > f.maxBytes {
		return "", errFeedTooLarge
	}
	return string(b), nil
}

func (f *Fetcher) fetchRemote(ctx context.Context) (string, error) {
	result, err := f.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		body, err := f.readLimited(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return "", fmt.Errorf("fetch feed %s: %w", f.source, err)
	}

	body, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func isRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
