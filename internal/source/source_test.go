package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type stubFetcher struct {
	text  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestHTTPFetcher(t *testing.T) {
	t.Run("ok strips BOM", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "\ufeffAgent,Rating\nJane,5\n")
		}))
		defer srv.Close()

		text, err := NewHTTPFetcher(srv.URL, time.Second).Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Agent,Rating\nJane,5\n", text)
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewHTTPFetcher(srv.URL, time.Second).Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 404")
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := (&HTTPFetcher{}).Fetch(context.Background())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	text, err := (&FileFetcher{Path: path}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", text)

	_, err = (&FileFetcher{Path: filepath.Join(t.TempDir(), "missing.csv")}).Fetch(context.Background())
	assert.Error(t, err)
}

func TestParseSources(t *testing.T) {
	sources, err := ParseSources(" 2023=https://example.com/a.csv ; ./old.csv;;", time.Second)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "2023", sources[0].Label)
	assert.IsType(t, &HTTPFetcher{}, sources[0].Fetcher)
	assert.Equal(t, "./old.csv", sources[1].Label)
	assert.Equal(t, &FileFetcher{Path: "./old.csv"}, sources[1].Fetcher)

	_, err = ParseSources("x=", time.Second)
	assert.Error(t, err)

	none, err := ParseSources("", time.Second)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFallbackFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubFetcher{text: "primary"}
		fallback := &stubFetcher{text: "fallback"}
		f := &FallbackFetcher{Primary: primary, Fallback: fallback, Logger: zap.NewNop()}

		text, err := f.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "primary", text)
		assert.Equal(t, 0, fallback.calls)
	})

	t.Run("primary fails, fallback used", func(t *testing.T) {
		f := &FallbackFetcher{
			Primary:  &stubFetcher{err: errors.New("403 forbidden")},
			Fallback: &stubFetcher{text: "fallback"},
		}
		text, err := f.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fallback", text)
	})

	t.Run("no primary configured", func(t *testing.T) {
		f := &FallbackFetcher{Fallback: &stubFetcher{text: "fallback"}}
		text, err := f.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fallback", text)
	})

	t.Run("both fail", func(t *testing.T) {
		f := &FallbackFetcher{
			Primary:  &stubFetcher{err: errors.New("403 forbidden")},
			Fallback: &stubFetcher{err: errors.New("dns failure")},
		}
		_, err := f.Fetch(ctx)
		assert.ErrorIs(t, err, ErrNoSource)
		assert.Contains(t, err.Error(), "403 forbidden")
		assert.Contains(t, err.Error(), "dns failure")
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := (&FallbackFetcher{}).Fetch(ctx)
		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("cancelled context does not fall back", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		fallback := &stubFetcher{text: "fallback"}
		f := &FallbackFetcher{Primary: &stubFetcher{err: context.Canceled}, Fallback: fallback}

		_, err := f.Fetch(cctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, fallback.calls)
	})
}

func TestSheetsFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"range": "Reviews!A1:D3",
			"majorDimension": "ROWS",
			"values": [
				["Agent", "Rating", "Comment"],
				["Jane", "5", "Fast, friendly", "extra"],
				["Bob", "4"]
			]
		}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	f, err := NewSheetsFetcher(ctx, "sheet-id", "Reviews",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	text, err := f.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Agent,Rating,Comment,\nJane,5,\"Fast, friendly\",extra\nBob,4", text)
}

func TestNewSheetsFetcherNotConfigured(t *testing.T) {
	_, err := NewSheetsFetcher(context.Background(), "", "A:Z", option.WithAPIKey("k"))
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSheetsFetcher(context.Background(), "sheet-id", "A:Z")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
