package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileFetcher opens local paths and file:// URLs.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, locator string) (io.ReadCloser, error) {
	path := LocalPath(locator)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: open %q: %w", path, err)
	}
	return f, nil
}

// LocalPath strips a file:// prefix; a locator without a scheme is already a path.
func LocalPath(locator string) string {
	return strings.TrimPrefix(locator, "file://")
}
