package storage

import (
	"context"
	"io"

	"airbnb-explorer/models"
)

// RawListingReader turns source bytes into raw, untyped rows. Row-level
// problems are returned alongside the rows that could be read; a non-nil
// error means the source as a whole could not be read.
type RawListingReader interface {
	ReadRaw(r io.Reader) (rows []*models.RawListing, problems []error, err error)
}

// ListingReader loads typed listings directly from a database source.
type ListingReader interface {
	ReadAll(ctx context.Context) ([]models.Listing, models.LoadStats, error)
	Close() error
}
