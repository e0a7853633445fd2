// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/olegiv/ocms-builder/internal/util"
)

// Fetcher defaults.
const (
	DefaultFetchTimeout  = 30 * time.Second
	DefaultMaxDocument   = 5 << 20 // 5MB
	maxFetchRedirects    = 5
	fetcherUserAgent     = "oCMS-Builder/1.0"
	placeholderHeadline  = "Imported from Figma"
	placeholderContainer = "container"
)

// Document is a design file reduced to the frames the importer understands.
type Document struct {
	Name   string  `json:"name"`
	Frames []Frame `json:"frames"`
}

// Frame is one element of a design document.
type Frame struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Name     string  `json:"name,omitempty"`
	Text     string  `json:"text,omitempty"`
	Tag      string  `json:"tag,omitempty"`
	Src      string  `json:"src,omitempty"`
	Children []Frame `json:"children,omitempty"`
}

// Fetcher loads the design document behind a design reference.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*Document, error)
}

// PlaceholderFetcher stands in for a design-tool integration. It returns a
// fixed headline and the source reference, without any network access, so
// any non-empty reference is accepted.
type PlaceholderFetcher struct{}

// Fetch implements Fetcher.
func (PlaceholderFetcher) Fetch(ctx context.Context, source string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Document{
		Name: placeholderHeadline,
		Frames: []Frame{{
			ID:   placeholderContainer,
			Type: FrameTypeFrame,
			Children: []Frame{
				{ID: "title", Type: FrameTypeText, Text: placeholderHeadline, Tag: "h1"},
				{ID: "desc", Type: FrameTypeText, Text: source, Tag: "p"},
			},
		}},
	}, nil
}

// HTTPFetcherOptions configures an HTTPFetcher.
type HTTPFetcherOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// Client replaces the SSRF-safe default client. With a custom client
	// only the scheme is checked, so tests can reach loopback servers.
	Client *http.Client
}

// HTTPFetcher downloads a JSON design document. Private and loopback
// addresses are refused before the request and again at dial time,
// redirects included.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	checkURL func(string) (*url.URL, error)
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts HTTPFetcherOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxDocument
	}

	client := opts.Client
	checkURL := parseHTTPURL
	if client == nil {
		checkURL = util.ValidateRemoteURL
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext:         util.SSRFSafeDialContext(dialer),
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxFetchRedirects {
					return errors.New("too many redirects")
				}
				_, err := util.ValidateRemoteURL(req.URL.String())
				return err
			},
		}
	}

	return &HTTPFetcher{client: client, maxBytes: opts.MaxBytes, checkURL: checkURL}
}

// parseHTTPURL accepts absolute http(s) URLs without any address checks.
func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("URL must use http or https scheme")
	}
	if u.Host == "" {
		return nil, errors.New("URL must have a hostname")
	}
	return u, nil
}

// Fetch implements Fetcher. source must be an absolute http(s) URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) (*Document, error) {
	u, err := f.checkURL(source)
	if err != nil {
		return nil, fmt.Errorf("invalid design URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fetcherUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching design: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching design: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading design: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("design document exceeds %d bytes", f.maxBytes)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding design: %w", err)
	}
	return &doc, nil
}
