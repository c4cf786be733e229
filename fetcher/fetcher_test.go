package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/utils"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestScheme(t *testing.T) {
	cases := map[string]string{
		"./listings.csv":                  "file",
		"/tmp/listings.csv":               "file",
		"file:///tmp/listings.csv":        "file",
		"HTTPS://example.com/a.csv":       "https",
		"s3://bucket/a.csv":               "s3",
		"gs://bucket/a.csv":               "gs",
		"browser+https://example.com/a":   "browser+https",
		"postgres://u:p@localhost/rental": "postgres",
	}
	for in, want := range cases {
		assert.Equal(t, want, Scheme(in), in)
	}
}

func TestRouterFileAndGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(plain, []byte("id,name\n1,a\n"), 0o644))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("id,name\n2,b\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	gz := filepath.Join(dir, "listings.csv.gz")
	require.NoError(t, os.WriteFile(gz, buf.Bytes(), 0o644))

	r := NewRouter()

	rc, err := r.Fetch(context.Background(), plain)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,a\n", readAll(t, rc))

	rc, err = r.Fetch(context.Background(), "file://"+gz)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n2,b\n", readAll(t, rc))
}

func TestDecompressZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte("id\n3\n"), nil)
	require.NoError(t, enc.Close())

	rc, err := Decompress("s3://b/listings.csv.zst?versionId=1", io.NopCloser(bytes.NewReader(compressed)))
	require.NoError(t, err)
	assert.Equal(t, "id\n3\n", readAll(t, rc))
}

func TestRouterMissingFileIsSourceUnavailable(t *testing.T) {
	_, err := NewRouter().Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRouterUnknownScheme(t *testing.T) {
	_, err := NewRouter().Fetch(context.Background(), "ftp://example.com/listings.csv")

	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestRouterDispatchesByScheme(t *testing.T) {
	r := NewRouter()
	var got string
	r.Register("mem", FetcherFunc(func(_ context.Context, locator string) (io.ReadCloser, error) {
		got = locator
		return io.NopCloser(strings.NewReader("ok")), nil
	}))

	rc, err := r.Fetch(context.Background(), "mem://dataset")
	require.NoError(t, err)
	assert.Equal(t, "ok", readAll(t, rc))
	assert.Equal(t, "mem://dataset", got)
}

func newTestHTTPFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	})
}

func TestHTTPFetcherDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("id\n1\n"))
	}))
	defer srv.Close()

	rc, err := newTestHTTPFetcher().Fetch(context.Background(), srv.URL+"/listings.csv")
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", readAll(t, rc))
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rc, err := newTestHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", readAll(t, rc))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcherDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestHTTPFetcher().Fetch(context.Background(), srv.URL)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type fakeS3 struct {
	bucket, key string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("id\n9\n"))}, nil
}

func TestS3Fetcher(t *testing.T) {
	fake := &fakeS3{}
	rc, err := NewS3Fetcher(fake).Fetch(context.Background(), "s3://insideairbnb/nyc/listings.csv")
	require.NoError(t, err)

	assert.Equal(t, "id\n9\n", readAll(t, rc))
	assert.Equal(t, "insideairbnb", fake.bucket)
	assert.Equal(t, "nyc/listings.csv", fake.key)

	_, err = NewS3Fetcher(fake).Fetch(context.Background(), "s3://only-bucket")
	assert.Error(t, err)
}

func TestGCSFetcher(t *testing.T) {
	var gotBucket, gotObject string
	f := NewGCSFetcher(func(_ context.Context, bucket, object string) (io.ReadCloser, error) {
		gotBucket, gotObject = bucket, object
		return io.NopCloser(strings.NewReader("id\n")), nil
	})

	rc, err := f.Fetch(context.Background(), "gs://listings/2021/listings.csv")
	require.NoError(t, err)
	assert.Equal(t, "id\n", readAll(t, rc))
	assert.Equal(t, "listings", gotBucket)
	assert.Equal(t, "2021/listings.csv", gotObject)
}

func TestS3FetcherRetriesFailedClientCreation(t *testing.T) {
	fake := &fakeS3{}
	attempts := 0
	f := NewS3Fetcher(nil)
	f.newClient = func(context.Context) (S3API, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("no credentials yet")
		}
		return fake, nil
	}

	_, err := f.Fetch(context.Background(), "s3://insideairbnb/listings.csv")
	require.Error(t, err)

	for i := 0; i < 2; i++ {
		rc, err := f.Fetch(context.Background(), "s3://insideairbnb/listings.csv")
		require.NoError(t, err)
		assert.Equal(t, "id\n9\n", readAll(t, rc))
	}
	assert.Equal(t, 2, attempts)
}

func TestGCSFetcherRetriesFailedClientCreation(t *testing.T) {
	attempts := 0
	f := NewGCSFetcher(nil)
	f.newOpener = func() (ObjectOpener, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("metadata server unreachable")
		}
		return func(context.Context, string, string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("id\n")), nil
		}, nil
	}

	_, err := f.Fetch(context.Background(), "gs://listings/listings.csv")
	require.Error(t, err)

	for i := 0; i < 2; i++ {
		rc, err := f.Fetch(context.Background(), "gs://listings/listings.csv")
		require.NoError(t, err)
		assert.Equal(t, "id\n", readAll(t, rc))
	}
	assert.Equal(t, 2, attempts)
}

func TestBrowserTarget(t *testing.T) {
	tests := []struct {
		locator string
		want    string
		wantErr bool
	}{
		{"browser+https://data.insideairbnb.com/listings.csv", "https://data.insideairbnb.com/listings.csv", false},
		{"BROWSER+http://mirror.local/listings.csv", "http://mirror.local/listings.csv", false},
		{"https://data.insideairbnb.com/listings.csv", "", true},
		{"browser+s3://bucket/listings.csv", "", true},
		{"browser+", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := browserTarget(tt.locator)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestBrowserFetcher(attempts int, render func(context.Context, string) (string, error)) *BrowserFetcher {
	b := NewBrowserFetcher("/bin/true", time.Second, attempts, utils.NewNopLogger())
	b.retry.BaseDelay = time.Millisecond
	b.render = render
	return b
}

func TestBrowserFetcherRetriesRender(t *testing.T) {
	var targets []string
	b := newTestBrowserFetcher(3, func(_ context.Context, target string) (string, error) {
		targets = append(targets, target)
		if len(targets) < 3 {
			return "", errors.New("net::ERR_CONNECTION_RESET")
		}
		return "id,name\n1,Loft\n", nil
	})

	rc, err := b.Fetch(context.Background(), "browser+https://mirror.local/listings.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Loft\n", readAll(t, rc))
	assert.Equal(t, []string{
		"https://mirror.local/listings.csv",
		"https://mirror.local/listings.csv",
		"https://mirror.local/listings.csv",
	}, targets)
}

func TestBrowserFetcherGivesUp(t *testing.T) {
	calls := 0
	b := newTestBrowserFetcher(2, func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("timeout")
	})

	_, err := b.Fetch(context.Background(), "browser+https://mirror.local/listings.csv")
	assert.Error(t, err)
	assert.Equal(t, 2, calls)

	_, err = b.Fetch(context.Background(), "browser+ftp://mirror.local/listings.csv")
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
