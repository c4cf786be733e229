package fetcher

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
)

// ObjectOpener opens one object of a bucket.
type ObjectOpener func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// GCSFetcher reads gs://bucket/object locators. Without an injected opener it
// creates a storage client from application default credentials on first use;
// a failed creation is retried by the next Fetch.
type GCSFetcher struct {
	mu        sync.Mutex
	open      ObjectOpener
	newOpener func() (ObjectOpener, error)
}

// NewGCSFetcher returns a GCSFetcher. open may be nil.
func NewGCSFetcher(open ObjectOpener) *GCSFetcher {
	return &GCSFetcher{open: open, newOpener: defaultGCSOpener}
}

func defaultGCSOpener() (ObjectOpener, error) {
	// The client outlives the call that creates it, so it must not inherit a
	// caller's ctx.
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		return client.Bucket(bucket).Object(object).NewReader(ctx)
	}, nil
}

func (f *GCSFetcher) opener() (ObjectOpener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.open == nil {
		open, err := f.newOpener()
		if err != nil {
			return nil, err
		}
		f.open = open
	}
	return f.open, nil
}

func (f *GCSFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	bucket, object, err := splitBucketKey(locator)
	if err != nil {
		return nil, fmt.Errorf("gcs: %w", err)
	}

	open, err := f.opener()
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	rc, err := open(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("gcs: open gs://%s/%s: %w", bucket, object, err)
	}
	return rc, nil
}
