// Package fetcher opens the raw bytes behind a source locator. Locators are
// paths or URLs; the scheme picks the transport and a .gz or .zst suffix
// turns on decompression.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"airbnb-explorer/apperrors"
)

// Fetcher opens the bytes behind a locator. The caller closes the reader.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locator string) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	return f(ctx, locator)
}

// Router dispatches locators to a Fetcher by scheme.
type Router struct {
	byScheme map[string]Fetcher
}

// NewRouter returns a Router that serves plain paths and file:// URLs.
func NewRouter() *Router {
	r := &Router{byScheme: make(map[string]Fetcher)}
	r.Register("file", FileFetcher{})
	return r
}

// Register installs f for scheme, replacing any previous one.
func (r *Router) Register(scheme string, f Fetcher) {
	r.byScheme[strings.ToLower(scheme)] = f
}

// Fetch opens locator and applies decompression by suffix. Every failure is
// reported as a source-unavailable error.
func (r *Router) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	scheme := Scheme(locator)
	f, ok := r.byScheme[scheme]
	if !ok {
		return nil, apperrors.New(apperrors.KindSourceUnavailable, "no fetcher for scheme %q", scheme).
			WithDetail("locator", locator)
	}

	rc, err := f.Fetch(ctx, locator)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindSourceUnavailable {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "fetch %s", locator)
	}

	out, err := Decompress(locator, rc)
	if err != nil {
		_ = rc.Close()
		return nil, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "decompress %s", locator)
	}
	return out, nil
}

// Scheme returns the lower-cased scheme of locator, or "file" for bare paths.
func Scheme(locator string) string {
	if i := strings.Index(locator, "://"); i > 0 {
		return strings.ToLower(locator[:i])
	}
	return "file"
}

// splitBucketKey parses scheme://bucket/key locators.
func splitBucketKey(locator string) (bucket, key string, err error) {
	i := strings.Index(locator, "://")
	if i < 0 {
		return "", "", fmt.Errorf("locator %q has no scheme", locator)
	}
	rest := locator[i+3:]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("locator %q must look like scheme://bucket/key", locator)
	}
	return bucket, key, nil
}
