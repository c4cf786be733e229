package fetcher

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the S3 client the fetcher uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads s3://bucket/key locators. Unless one is injected, the
// client is created on first use from the default AWS credential chain. A
// failed creation is retried by the next Fetch.
type S3Fetcher struct {
	mu        sync.Mutex
	client    S3API
	newClient func(ctx context.Context) (S3API, error)
}

// NewS3Fetcher returns an S3Fetcher. client may be nil.
func NewS3Fetcher(client S3API) *S3Fetcher {
	return &S3Fetcher{client: client, newClient: defaultS3Client}
}

func defaultS3Client(ctx context.Context) (S3API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func (f *S3Fetcher) clientFor(ctx context.Context) (S3API, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		client, err := f.newClient(ctx)
		if err != nil {
			return nil, err
		}
		f.client = client
	}
	return f.client, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	bucket, key, err := splitBucketKey(locator)
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}

	client, err := f.clientFor(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}
