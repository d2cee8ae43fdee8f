package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

const (
	// DayCount is the number of daily pages in a station week.
	DayCount = 7
	// DefaultCountry is prefixed to station ids without a country code.
	DefaultCountry = "us"
	// DefaultDomain is the playlist site stations are scraped from.
	DefaultDomain = "https://onlineradiobox.com"
)

// Week holds the raw page bodies of a station, indexed by day offset.
type Week [DayCount][]byte

// ResolveStation returns the country coded form of id, prefixing [DefaultCountry] when id has no "/".
func ResolveStation(id string) (string, error) {
	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" {
		return "", fmt.Errorf("%w: station id is empty", shared.ErrInvalidArgument)
	}
	if !strings.Contains(id, "/") {
		return DefaultCountry + "/" + id, nil
	}
	return id, nil
}

// Options configure a [Fetcher].
type Options struct {
	Domain    string
	RetryMax  int
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper // Optional; defaults to a pooled transport
}

// OptionsFromConfig maps the [shared.SourceConfig] section onto [Options].
func OptionsFromConfig(c shared.SourceConfig) Options {
	return Options{
		Domain:    c.Domain,
		RetryMax:  c.RetryMax,
		Timeout:   c.Timeout(),
		UserAgent: c.UserAgent,
	}
}

// Fetcher downloads station pages.
type Fetcher struct {
	client    *retryablehttp.Client
	domain    string
	userAgent string
	logger    *log.Logger
}

// NewFetcher creates a [Fetcher] backed by a retrying HTTP client.
//
// Retries belong to the transport: a page that still fails after RetryMax attempts fails the whole week.
func NewFetcher(opts Options, logger *log.Logger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.Logger = nil
	client.HTTPClient.Timeout = opts.Timeout
	if client.HTTPClient.Timeout <= 0 {
		client.HTTPClient.Timeout = 20 * time.Second
	}
	if opts.Transport != nil {
		client.HTTPClient.Transport = opts.Transport
	}

	domain := strings.TrimRight(opts.Domain, "/")
	if domain == "" {
		domain = DefaultDomain
	}

	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &Fetcher{client: client, domain: domain, userAgent: opts.UserAgent, logger: logger}
}

// URL returns the playlist page address of station for the given day offset.
func (f *Fetcher) URL(station string, day int) string {
	return fmt.Sprintf("%s/%s/playlist/%d", f.domain, station, day)
}

// Fetch retrieves all [DayCount] pages of station concurrently.
//
// The first failing day cancels the others and no partial week is returned.
func (f *Fetcher) Fetch(ctx context.Context, station string) (Week, error) {
	var week Week

	station, err := ResolveStation(station)
	if err != nil {
		return week, err
	}

	g, ctx := errgroup.WithContext(ctx)
	for day := range DayCount {
		g.Go(func() error {
			body, err := f.get(ctx, f.URL(station, day))
			if err != nil {
				return fmt.Errorf("%w: %s day %d: %v", shared.ErrFetch, station, day, err)
			}
			week[day] = body
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Week{}, err
	}

	f.logger.Debug("fetched station week", "station", station, "days", DayCount)
	return week, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
