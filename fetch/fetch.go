// Package fetch downloads the ClubLog country file.
//
// A download goes to a temporary file next to the destination, is decoded
// and loaded to prove it is a usable dataset, and only then renamed over
// the destination. A snapshot.Watcher on the destination picks it up.
package fetch

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/hamcall/dxcc"
	"github.com/teranos/hamcall/dxcc/ctyxml"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/internal/httpclient"
	"github.com/teranos/hamcall/logger"
	"github.com/teranos/hamcall/sym"
	"github.com/teranos/hamcall/version"
)

// DefaultURL is the ClubLog country file endpoint. It needs an API key.
const DefaultURL = "https://cdn.clublog.org/cty.php"

// maxBytes caps the download. The compressed file is well under 1 MiB.
const maxBytes = 64 << 20

var (
	// ErrTooSoon is returned when a refresh is requested before the
	// minimum interval has passed.
	ErrTooSoon = errors.New("dataset refreshed too recently")

	// ErrNoAPIKey is returned when the default ClubLog URL is used without a key.
	ErrNoAPIKey = errors.New("no ClubLog API key configured")
)

// Config configures a Fetcher.
type Config struct {
	URL    string
	APIKey string
	// Dest is the path the dataset file is written to.
	Dest string
	// MinInterval is the shortest time between two downloads.
	MinInterval time.Duration
	Timeout     time.Duration
	// AllowPrivate lets the download reach loopback and private addresses.
	AllowPrivate bool
}

// Result describes a finished download.
type Result struct {
	Path     string        `json:"path"`
	Bytes    int64         `json:"bytes"`
	Stats    dxcc.Stats    `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// Fetcher downloads the dataset file.
type Fetcher struct {
	cfg     Config
	client  *httpclient.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// New returns a Fetcher for cfg.
func New(cfg Config, log *zap.SugaredLogger) (*Fetcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Dest == "" {
		return nil, errors.New("fetch destination is required")
	}
	if cfg.URL == DefaultURL && cfg.APIKey == "" {
		return nil, errors.WithHint(ErrNoAPIKey, "set CLUBLOG_API_KEY or dataset.api_key")
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	f := &Fetcher{
		cfg: cfg,
		client: httpclient.New(httpclient.Options{
			Timeout:      cfg.Timeout,
			AllowPrivate: cfg.AllowPrivate,
			UserAgent:    version.UserAgent(),
		}),
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
	}
	if _, err := f.sourceURL(); err != nil {
		return nil, err
	}
	return f, nil
}

// sourceURL is the download URL with the API key added.
func (f *Fetcher) sourceURL() (*url.URL, error) {
	u, err := f.client.ValidateURL(f.cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset url %s", Redact(f.cfg.URL))
	}
	if f.cfg.APIKey != "" {
		q := u.Query()
		q.Set("api", f.cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// Redact removes the API key from a URL for logging.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("api") {
		q.Set("api", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Fetch downloads the dataset to the destination. Unless force is set,
// calls closer together than MinInterval fail with ErrTooSoon.
func (f *Fetcher) Fetch(ctx context.Context, force bool) (*Result, error) {
	if !force && !f.limiter.Allow() {
		return nil, errors.WithHintf(ErrTooSoon, "wait %s between downloads or use --force", f.cfg.MinInterval)
	}

	src, err := f.sourceURL()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dir := filepath.Dir(f.cfg.Dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	tmpDir, err := os.MkdirTemp(dir, ".hamcall-fetch-*")
	if err != nil {
		return nil, errors.Wrap(err, "create download directory")
	}
	defer os.RemoveAll(tmpDir)
	tmp := filepath.Join(tmpDir, filepath.Base(f.cfg.Dest))

	log := logger.WithSymbol(f.logger, sym.Fetch)
	log.Infow("Downloading dataset", logger.FieldURL, Redact(src.String()))

	httpGetter := &getter.HttpGetter{
		Client:                f.client.Client,
		MaxBytes:              maxBytes,
		XTerraformGetDisabled: true,
		DoNotCheckHeadFirst:   true,
	}
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src.String(),
		Dst:  tmp,
		Mode: getter.ClientModeFile,
		Getters: map[string]getter.Getter{
			"http":  httpGetter,
			"https": httpGetter,
		},
		Decompressors: map[string]getter.Decompressor{},
	}
	if err := client.Get(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "download cancelled")
		}
		return nil, errors.Wrapf(err, "download %s", Redact(src.String()))
	}

	ds, err := ctyxml.LoadFile(tmp)
	if err != nil {
		return nil, errors.Wrap(err, "downloaded file is not a usable dataset")
	}
	info, err := os.Stat(tmp)
	if err != nil {
		return nil, errors.Wrap(err, "stat download")
	}
	if err := os.Rename(tmp, f.cfg.Dest); err != nil {
		return nil, errors.Wrapf(err, "install %s", f.cfg.Dest)
	}

	res := &Result{
		Path:     f.cfg.Dest,
		Bytes:    info.Size(),
		Stats:    ds.Stats(),
		Duration: time.Since(start),
	}
	log.Infow("Dataset downloaded",
		logger.FieldPath, res.Path,
		logger.FieldDatasetDate, res.Stats.Date,
		logger.FieldEntities, res.Stats.Entities,
		logger.FieldDurationMS, res.Duration.Milliseconds())
	return res, nil
}

// Run fetches every interval until ctx is done. Failures are logged and
// retried at the next tick.
func (f *Fetcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := f.Fetch(ctx, false); err != nil && ctx.Err() == nil {
				f.logger.Warnw("Scheduled dataset refresh failed", logger.FieldError, err)
			}
		}
	}
}
