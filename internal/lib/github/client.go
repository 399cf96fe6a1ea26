// Package github scrapes the public contribution calendar from a
// profile page.
//
// A lookup fetches the profile's year selector, then each year's calendar
// fragment in parallel. Requests carry X-Requested-With so the host
// serves the bare fragment rather than the full page.
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/lib/httpclient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUserNotFound is returned when the upstream answers 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
	// A truncated page would parse into a partial calendar.
	ErrBodyTooLarge = errors.New("upstream response too large")
)

// UpstreamError is a non-2xx, non-404 response from the upstream.
type UpstreamError struct {
	Status int
	URL    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.Status, e.URL)
}

// Observer receives one call per upstream request.
// kind is "years" or "year"; outcome is "ok", "not_found" or "error".
type Observer interface {
	ObserveFetch(kind, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, string, time.Duration) {}

// Options configures a Client.
type Options struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	MaxConcurrency int
	MaxBodyBytes   int64
	Observer       Observer
	Logger         *zerolog.Logger
}

// Client fetches and parses calendars.
type Client struct {
	http           *http.Client
	baseURL        *url.URL
	userAgent      string
	maxConcurrency int
	maxBodyBytes   int64
	observer       Observer
	logger         zerolog.Logger
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	c := &Client{
		http:           opts.HTTPClient,
		baseURL:        base,
		userAgent:      opts.UserAgent,
		maxConcurrency: opts.MaxConcurrency,
		maxBodyBytes:   opts.MaxBodyBytes,
		observer:       opts.Observer,
		logger:         zerolog.Nop(),
	}
	if c.http == nil {
		c.http = httpclient.NewSimple(0)
	}
	if c.maxConcurrency < 1 {
		c.maxConcurrency = 1
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = 5 << 20
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str("component", "github_scraper").Logger()
	}

	return c, nil
}

// NewClientFromConfig builds a Client and its HTTP transport from config.
func NewClientFromConfig(cfg config.ScraperConfig, observer Observer, logger *zerolog.Logger) (*Client, error) {
	httpClient, err := httpclient.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}

	c, err := NewClient(Options{
		HTTPClient:     httpClient,
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		MaxConcurrency: cfg.MaxConcurrency,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Observer:       observer,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("proxy", httpclient.ProxyInfo(&cfg.Proxy)).
		Int("max_concurrency", c.maxConcurrency).
		Msg("scraper configured")

	return c, nil
}

// FetchYears fetches the year selector of username's profile.
func (c *Client) FetchYears(ctx context.Context, username string) ([]YearLink, error) {
	ref := "/" + url.PathEscape(username) + "?tab=contributions"

	var links []YearLink
	err := c.fetch(ctx, "years", ref, func(body io.Reader) error {
		var err error
		links, err = ParseYearLinks(body, c.baseURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	return links, nil
}

// FetchYear fetches and parses the calendar behind link.
func (c *Client) FetchYear(ctx context.Context, link YearLink) (calendar.Year, error) {
	var year calendar.Year
	err := c.fetch(ctx, "year", link.Href, func(body io.Reader) error {
		var err error
		year, err = ParseCalendar(body, link.Label)
		return err
	})
	if err != nil {
		return calendar.Year{}, err
	}

	return year, nil
}

// FetchAll fetches every year of username's calendar.
//
// Years are fetched in parallel, at most maxConcurrency at a time, and
// returned in year selector order. The first failure cancels the rest.
func (c *Client) FetchAll(ctx context.Context, username string) ([]calendar.Year, error) {
	start := time.Now()

	links, err := c.FetchYears(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetch years for %s: %w", username, err)
	}

	years := make([]calendar.Year, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, link := range links {
		g.Go(func() error {
			year, err := c.FetchYear(gctx, link)
			if err != nil {
				return fmt.Errorf("fetch year %s for %s: %w", link.Label, username, err)
			}
			years[i] = year
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("username", username).
		Int("years", len(years)).
		Dur("duration", time.Since(start)).
		Msg("fetched contribution calendar")

	return years, nil
}

// Ping checks the upstream is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &UpstreamError{Status: resp.StatusCode, URL: c.baseURL.String()}
	}
	return nil
}

// fetch GETs ref relative to the base URL and hands the body to parse.
func (c *Client) fetch(ctx context.Context, kind, ref string, parse func(io.Reader) error) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		c.observer.ObserveFetch(kind, outcome, time.Since(start))
	}()

	u, err := c.baseURL.Parse(ref)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", ref, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/html")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", u.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		outcome = "not_found"
		return ErrUserNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &UpstreamError{Status: resp.StatusCode, URL: u.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read %s: %w", u.Path, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return fmt.Errorf("get %s: %w", u.Path, ErrBodyTooLarge)
	}

	if err := parse(bytes.NewReader(body)); err != nil {
		return err
	}

	outcome = "ok"
	return nil
}
