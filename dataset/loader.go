// Package dataset builds the listings Table from a source locator.
package dataset

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/fetcher"
	"airbnb-explorer/metrics"
	"airbnb-explorer/models"
	"airbnb-explorer/services"
	"airbnb-explorer/storage"
	"airbnb-explorer/utils"
)

var tracer = otel.Tracer("airbnb-explorer/dataset")

// DBOpener opens a database-backed reader for a locator.
type DBOpener func(ctx context.Context, locator string) (storage.ListingReader, error)

// Loader turns a locator into a Table. Byte sources go through the fetcher
// router and the CSV reader; postgres:// locators are read with lib/pq.
type Loader struct {
	fetch   fetcher.Fetcher
	reader  storage.RawListingReader
	cleaner *services.Cleaner
	openDB  DBOpener
	logger  *utils.Logger
}

// NewLoader creates a Loader. openDB may be nil to use PostgresReader.
func NewLoader(fetch fetcher.Fetcher, openDB DBOpener, logger *utils.Logger) *Loader {
	if openDB == nil {
		openDB = func(ctx context.Context, locator string) (storage.ListingReader, error) {
			return storage.NewPostgresReader(ctx, locator, 10)
		}
	}
	return &Loader{
		fetch:   fetch,
		reader:  storage.NewCSVReader(),
		cleaner: services.NewCleaner(logger),
		openDB:  openDB,
		logger:  logger,
	}
}

// IsDatabase reports whether locator names a PostgreSQL source.
func IsDatabase(locator string) bool {
	switch fetcher.Scheme(locator) {
	case "postgres", "postgresql":
		return true
	}
	return false
}

// Load retrieves and parses the source. It fails with a source-unavailable
// error when the bytes cannot be read and with a parse error when the header
// does not match the schema; bad rows are skipped and counted on the Table.
func (l *Loader) Load(ctx context.Context, locator string) (*models.Table, error) {
	scheme := fetcher.Scheme(locator)
	ctx, span := tracer.Start(ctx, "dataset.Load",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("source.scheme", scheme)))
	defer span.End()

	start := time.Now()
	var (
		rows  []models.Listing
		stats models.LoadStats
		err   error
	)
	if IsDatabase(locator) {
		rows, stats, err = l.loadDB(ctx, locator)
	} else {
		rows, stats, err = l.loadCSV(ctx, locator)
	}
	metrics.LoadDuration.WithLabelValues(scheme).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SourceLoads.WithLabelValues(scheme, metrics.OutcomeFailure).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.SourceLoads.WithLabelValues(scheme, metrics.OutcomeSuccess).Inc()
	metrics.RowsSkipped.Add(float64(stats.Skipped))
	span.SetAttributes(
		attribute.Int("rows.loaded", len(rows)),
		attribute.Int("rows.skipped", stats.Skipped),
	)

	l.logger.Info("[dataset] Loaded %d listings from %s in %v (skipped %d)",
		len(rows), locator, time.Since(start).Round(time.Millisecond), stats.Skipped)
	return models.NewTable(locator, rows, stats), nil
}

func (l *Loader) loadCSV(ctx context.Context, locator string) ([]models.Listing, models.LoadStats, error) {
	rc, err := l.fetch.Fetch(ctx, locator)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindSourceUnavailable {
			err = apperrors.Wrap(err, apperrors.KindSourceUnavailable, "fetch %s", locator)
		}
		return nil, models.LoadStats{}, err
	}
	defer rc.Close()

	raw, problems, err := l.reader.ReadRaw(rc)
	if err != nil {
		return nil, models.LoadStats{}, err
	}

	rows, stats := l.cleaner.Clean(raw)
	stats.Skipped += len(problems)
	stats.Problems = append(problems, stats.Problems...)
	return rows, stats, nil
}

func (l *Loader) loadDB(ctx context.Context, locator string) ([]models.Listing, models.LoadStats, error) {
	reader, err := l.openDB(ctx, locator)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindSourceUnavailable {
			err = apperrors.Wrap(err, apperrors.KindSourceUnavailable, "open %s", fetcher.Scheme(locator))
		}
		return nil, models.LoadStats{}, err
	}
	defer reader.Close()

	return reader.ReadAll(ctx)
}
