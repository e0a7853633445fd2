// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"name":"Landing","frames":[{"id":"t","type":"text","text":"Hi"}]}`)
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPFetcherOptions{Client: server.Client()})
	doc, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Landing", doc.Name)
	require.Len(t, doc.Frames, 1)
	assert.Equal(t, "Hi", doc.Frames[0].Text)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/large":
			_, _ = fmt.Fprintf(w, `{"name":"%s"}`, strings.Repeat("x", 256))
		default:
			_, _ = fmt.Fprint(w, "not json")
		}
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPFetcherOptions{Client: server.Client(), MaxBytes: 128})
	ctx := context.Background()

	_, err := f.Fetch(ctx, server.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status 404")

	_, err = f.Fetch(ctx, server.URL+"/large")
	assert.ErrorContains(t, err, "exceeds 128 bytes")

	_, err = f.Fetch(ctx, server.URL+"/garbage")
	assert.ErrorContains(t, err, "decoding design")
}

func TestHTTPFetcher_DefaultClientRefusesLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"frames":[]}`)
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPFetcherOptions{})
	_, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorContains(t, err, "invalid design URL: private or reserved IP addresses are not allowed")

	_, err = f.Fetch(context.Background(), "http://localhost/design")
	assert.ErrorContains(t, err, "localhost URLs are not allowed")
}

func TestHTTPFetcher_RequiresHTTPURL(t *testing.T) {
	f := NewHTTPFetcher(HTTPFetcherOptions{Client: http.DefaultClient})

	for _, source := range []string{"x", "figma-file-key", "ftp://example.com/design", "https://"} {
		_, err := f.Fetch(context.Background(), source)
		assert.ErrorContains(t, err, "invalid design URL", source)
	}
}
