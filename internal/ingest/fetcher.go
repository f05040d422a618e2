// Package ingest retrieves raw TLE text from CelesTrak, arbitrary URLs and
// local files, and feeds it into a tle.Store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultCelesTrakBase = "https://celestrak.org/NORAD/elements"
	defaultGroup         = "active"

	// MaxBodyBytes bounds every source read.
	MaxBodyBytes = 50 << 20

	// noDataMarker is returned by gp.php with a 200 for unknown groups.
	noDataMarker = "No GP data found"
)

// Source kinds.
const (
	KindCelesTrak = "celestrak"
	KindURL       = "url"
	KindFile      = "file"
)

// Source identifies where catalog text comes from.
type Source struct {
	Kind  string
	Group string // celestrak
	URL   string // url
	Path  string // file
}

func (s Source) String() string {
	switch s.Kind {
	case KindCelesTrak:
		return "celestrak:" + s.Group
	case KindURL:
		return s.URL
	case KindFile:
		return s.Path
	default:
		return s.Kind
	}
}

// ErrBodyTooLarge is returned when a source exceeds MaxBodyBytes.
var ErrBodyTooLarge = fmt.Errorf("source exceeds %d byte limit", MaxBodyBytes)

// SourceError reports a source that could not be read or is misconfigured.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("tle source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// FetcherConfig tunes remote retrieval.
type FetcherConfig struct {
	Timeout       time.Duration // per request (default: 15s)
	Retries       int           // extra attempts after the first
	CelesTrakBase string        // override for tests
}

// Fetcher retrieves raw TLE text.
type Fetcher struct {
	httpClient    *http.Client
	retries       int
	celestrakBase string
	logger        *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.CelesTrakBase == "" {
		cfg.CelesTrakBase = defaultCelesTrakBase
	}
	return &Fetcher{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		retries:       cfg.Retries,
		celestrakBase: strings.TrimRight(cfg.CelesTrakBase, "/"),
		logger:        logger,
	}
}

// Fetch returns the raw text of src.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (string, error) {
	switch src.Kind {
	case KindCelesTrak:
		return f.fetchCelesTrak(ctx, src.Group)
	case KindURL:
		if src.URL == "" {
			return "", &SourceError{Source: KindURL, Err: errors.New("missing url")}
		}
		return f.get(ctx, src.URL)
	case KindFile:
		return readFile(src.Path)
	default:
		return "", &SourceError{Source: src.Kind, Err: errors.New("unknown source kind")}
	}
}

// fetchCelesTrak tries the gp.php query endpoint first and falls back to the
// legacy <group>.txt listing.
func (f *Fetcher) fetchCelesTrak(ctx context.Context, group string) (string, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		group = defaultGroup
	}

	q := url.Values{"GROUP": {group}, "FORMAT": {"tle"}}
	gpURL := f.celestrakBase + "/gp.php?" + q.Encode()

	body, gpErr := f.get(ctx, gpURL)
	if gpErr == nil && !strings.Contains(body, noDataMarker) {
		return body, nil
	}
	if gpErr == nil {
		gpErr = errors.New(noDataMarker)
	}
	if ctx.Err() != nil {
		return "", gpErr
	}

	legacyURL := f.celestrakBase + "/" + url.PathEscape(group) + ".txt"
	f.logger.Warn("gp.php fetch failed, trying legacy listing",
		zap.String("group", group),
		zap.String("legacy_url", legacyURL),
		zap.Error(gpErr),
	)

	body, legacyErr := f.get(ctx, legacyURL)
	if legacyErr != nil {
		return "", &SourceError{
			Source: "celestrak:" + group,
			Err:    fmt.Errorf("gp.php: %v; legacy txt: %w", gpErr, legacyErr),
		}
	}
	return body, nil
}

// get performs an HTTP GET with bounded exponential retry. Client errors other
// than 429 are not retried.
func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		body, err := f.getOnce(ctx, rawURL)
		if err != nil {
			f.logger.Debug("fetch attempt failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return body, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(f.retries+1)),
	)
	if err != nil {
		return "", &SourceError{Source: rawURL, Err: err}
	}
	return body, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

func (f *Fetcher) getOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := &statusError{code: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", backoff.Permanent(serr)
		}
		return "", serr
	}

	body, err := readLimited(resp.Body)
	if errors.Is(err, ErrBodyTooLarge) {
		return "", backoff.Permanent(err)
	}
	return body, err
}

func readFile(path string) (string, error) {
	if path == "" {
		return "", &SourceError{Source: KindFile, Err: errors.New("missing path")}
	}
	fh, err := os.Open(path)
	if err != nil {
		return "", &SourceError{Source: path, Err: err}
	}
	defer fh.Close()

	body, err := readLimited(fh)
	if err != nil {
		return "", &SourceError{Source: path, Err: err}
	}
	return body, nil
}

func readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return "", ErrBodyTooLarge
	}
	return string(data), nil
}
