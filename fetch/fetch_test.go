package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/internal/httpclient"
)

func fixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("../dxcc/ctyxml/testdata/cty.xml")
	require.NoError(t, err)
	return raw
}

type upstream struct {
	*httptest.Server
	hits   atomic.Int32
	apiKey atomic.Value
}

func newUpstream(t *testing.T, status int, body []byte) *upstream {
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.apiKey.Store(r.URL.Query().Get("api"))
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(u.Close)
	return u
}

func newFetcher(t *testing.T, srvURL string, cfg Config) *Fetcher {
	t.Helper()
	cfg.URL = srvURL + "/cty.php"
	cfg.AllowPrivate = true
	if cfg.Dest == "" {
		cfg.Dest = filepath.Join(t.TempDir(), "cty.xml")
	}
	f, err := New(cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return f
}

func TestFetch(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, fixture(t))
	f := newFetcher(t, srv.URL, Config{APIKey: "secret"})

	res, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "secret", srv.apiKey.Load())
	assert.Equal(t, 6, res.Stats.Entities)
	assert.Positive(t, res.Bytes)

	got, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, fixture(t), got)

	entries, err := os.ReadDir(filepath.Dir(res.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are removed")
}

func TestFetchGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(fixture(t))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := newUpstream(t, http.StatusOK, buf.Bytes())
	f := newFetcher(t, srv.URL, Config{APIKey: "k"})

	res, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Stats.Prefixes)
}

func TestFetchKeepsExistingFileOnBadDownload(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "cty.xml")
	require.NoError(t, os.WriteFile(dest, fixture(t), 0o644))

	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"not found", http.StatusNotFound, []byte("no such key")},
		{"garbage", http.StatusOK, []byte("<html>maintenance</html>")},
		{"bad reference", http.StatusOK, []byte(`<clublog><prefixes><prefix><call>ZZ</call><adif>999</adif></prefix></prefixes></clublog>`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, tt.status, tt.body)
			f := newFetcher(t, srv.URL, Config{APIKey: "k", Dest: dest})

			_, err := f.Fetch(context.Background(), false)
			require.Error(t, err)

			got, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Equal(t, fixture(t), got)
		})
	}
}

func TestFetchMinInterval(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, fixture(t))
	f := newFetcher(t, srv.URL, Config{APIKey: "k", MinInterval: time.Hour})

	_, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), false)
	assert.True(t, errors.Is(err, ErrTooSoon))
	assert.EqualValues(t, 1, srv.hits.Load())

	_, err = f.Fetch(context.Background(), true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, srv.hits.Load())
}

func TestFetchCancelled(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, fixture(t))
	f := newFetcher(t, srv.URL, Config{APIKey: "k"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, false)
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Dest: "cty.xml"}, nil)
	assert.True(t, errors.Is(err, ErrNoAPIKey))

	_, err = New(Config{URL: "http://example.com/cty.xml"}, nil)
	assert.Error(t, err, "destination is required")

	_, err = New(Config{URL: "http://127.0.0.1/cty.xml", Dest: "cty.xml"}, nil)
	assert.True(t, errors.Is(err, httpclient.ErrBlocked))

	_, err = New(Config{URL: "ftp://example.com/cty.xml", Dest: "cty.xml", AllowPrivate: true}, nil)
	assert.True(t, errors.Is(err, httpclient.ErrBlocked))

	f, err := New(Config{URL: "https://example.com/cty.xml", Dest: "cty.xml"}, nil)
	require.NoError(t, err)
	u, err := f.sourceURL()
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("api"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://cdn.clublog.org/cty.php?api=REDACTED", Redact("https://cdn.clublog.org/cty.php?api=abc123"))
	assert.Equal(t, "https://example.com/cty.xml", Redact("https://example.com/cty.xml"))
	assert.Equal(t, "<invalid url>", Redact("://bad"))
}
