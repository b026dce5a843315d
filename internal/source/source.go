package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("source not configured")
	ErrNoSource      = errors.New("no source available")
)

const utf8BOM = "\ufeff"

// Fetcher returns the raw CSV text of one spreadsheet export.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Named binds a fetcher to the provenance label its rows are tagged with.
type Named struct {
	Label   string
	Fetcher Fetcher
}

// HTTPFetcher downloads a CSV from a URL such as a "publish to web" link.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	if f.URL == "" {
		return "", ErrNotConfigured
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", f.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: unexpected status %d", f.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", f.URL, err)
	}
	return strings.TrimPrefix(string(body), utf8BOM), nil
}

// FileFetcher reads an archived export from disk.
type FileFetcher struct {
	Path string
}

func (f *FileFetcher) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return strings.TrimPrefix(string(data), utf8BOM), nil
}

// FromLocation picks an HTTP or file fetcher based on the location string.
func FromLocation(location string, timeout time.Duration) Fetcher {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPFetcher(location, timeout)
	}
	return &FileFetcher{Path: location}
}

// ParseSources reads "label=location;label=location". An entry without a
// label uses its location as the label.
func ParseSources(list string, timeout time.Duration) ([]Named, error) {
	var out []Named
	for _, entry := range strings.Split(list, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, location, ok := strings.Cut(entry, "=")
		if !ok {
			label, location = entry, entry
		}
		label, location = strings.TrimSpace(label), strings.TrimSpace(location)
		if location == "" {
			return nil, fmt.Errorf("source %q has no location", label)
		}
		out = append(out, Named{Label: label, Fetcher: FromLocation(location, timeout)})
	}
	return out, nil
}

// FallbackFetcher tries Primary and, when it fails or is missing, Fallback.
// A cancelled or expired context is returned as is without falling back.
type FallbackFetcher struct {
	Primary  Fetcher
	Fallback Fetcher
	Logger   *zap.Logger
}

func (f *FallbackFetcher) Fetch(ctx context.Context) (string, error) {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var primaryErr error
	if f.Primary != nil {
		text, err := f.Primary.Fetch(ctx)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		logger.Warn("primary source failed, trying fallback", zap.Error(err))
		primaryErr = err
	}

	if f.Fallback == nil {
		if primaryErr != nil {
			return "", fmt.Errorf("%w: %v", ErrNoSource, primaryErr)
		}
		return "", ErrNoSource
	}

	text, err := f.Fallback.Fetch(ctx)
	if err != nil {
		if primaryErr != nil {
			return "", fmt.Errorf("%w: primary: %v; fallback: %v", ErrNoSource, primaryErr, err)
		}
		return "", err
	}
	return text, nil
}
