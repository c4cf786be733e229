package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
)

// DefaultTable is read when the locator does not name a table.
const DefaultTable = "listings"

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresReader loads listings from a PostgreSQL table that follows the CSV
// schema column for column.
type PostgresReader struct {
	db    *sql.DB
	table string
}

// NewPostgresReader opens a connection described by a postgres:// locator and
// waits for the server to answer. A "table" query parameter selects the
// table; it is removed before the DSN reaches the driver.
func NewPostgresReader(ctx context.Context, locator string, pingAttempts int) (*PostgresReader, error) {
	dsn, table, err := SplitPostgresLocator(locator)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "postgres: locator")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "postgres: open")
	}

	err = ping(ctx, db, pingAttempts)
	if err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "postgres: ping failed after retries")
	}

	return &PostgresReader{db: db, table: table}, nil
}

func ping(ctx context.Context, db *sql.DB, attempts int) error {
	var err error
	for i := 1; i <= attempts || i == 1; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return err
}

// SplitPostgresLocator separates the table parameter from the driver DSN.
func SplitPostgresLocator(locator string) (dsn, table string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", err
	}
	q := u.Query()
	table = q.Get("table")
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRegexp.MatchString(table) {
		return "", "", fmt.Errorf("invalid table name %q", table)
	}
	q.Del("table")
	u.RawQuery = q.Encode()
	return u.String(), table, nil
}

// ReadAll retrieves all stored listings ordered by id. NULL coordinates,
// prices and review rates load as absent. Rows with a NULL id or host_id, a
// negative price or an availability outside 0-365 are skipped and counted.
func (pr *PostgresReader) ReadAll(ctx context.Context) ([]models.Listing, models.LoadStats, error) {
	var stats models.LoadStats

	rows, err := pr.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, COALESCE(name, ''), host_id, COALESCE(host_name, ''),
		       COALESCE(neighbourhood_group, ''), COALESCE(neighbourhood, ''),
		       latitude, longitude, COALESCE(room_type, ''), price,
		       COALESCE(minimum_nights, 0), COALESCE(number_of_reviews, 0),
		       COALESCE(last_review::text, ''), reviews_per_month,
		       COALESCE(calculated_host_listings_count, 0), COALESCE(availability_365, 0)
		FROM %s
		ORDER BY id
	`, pr.table))
	if err != nil {
		return nil, stats, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "postgres: fetch all")
	}
	defer rows.Close()

	return collectRows(rows)
}

// rowScanner is the part of *sql.Rows that collectRows reads.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// collectRows converts result rows into listings. Rows with a NULL id or
// host_id, a duplicate id, or an out-of-range value are skipped and counted
// the way the CSV reader counts them.
func collectRows(rows rowScanner) ([]models.Listing, models.LoadStats, error) {
	var (
		stats    models.LoadStats
		listings []models.Listing
	)
	seen := make(map[int64]struct{})
	for n := 1; rows.Next(); n++ {
		var (
			l          models.Listing
			id, hostID sql.NullInt64
		)
		if err := rows.Scan(
			&id, &l.Name, &hostID, &l.HostName,
			&l.NeighbourhoodGroup, &l.Neighbourhood,
			&l.Latitude, &l.Longitude, &l.RoomType, &l.Price,
			&l.MinimumNights, &l.NumberOfReviews,
			&l.LastReview, &l.ReviewsPerMonth,
			&l.CalculatedHostListingsCount, &l.Availability365,
		); err != nil {
			return nil, stats, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "postgres: scan row")
		}
		l.ID, l.HostID = id.Int64, hostID.Int64

		var problem error
		switch {
		case !id.Valid:
			problem = &apperrors.ParseError{Row: n, Column: string(models.ColID), Err: errors.New("missing value")}
		case !hostID.Valid:
			problem = &apperrors.ParseError{Row: n, Column: string(models.ColHostID), Err: errors.New("missing value")}
		default:
			problem = checkRanges(n, l)
		}
		if _, dup := seen[l.ID]; dup && problem == nil {
			problem = &apperrors.ParseError{Row: n, Column: string(models.ColID), Value: fmt.Sprint(l.ID), Err: errors.New("duplicate id")}
		}
		if problem != nil {
			stats.Skipped++
			if len(stats.Problems) < models.MaxProblems {
				stats.Problems = append(stats.Problems, problem)
			}
			continue
		}
		seen[l.ID] = struct{}{}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, stats, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "postgres: iterate rows")
	}
	return listings, stats, nil
}

func checkRanges(row int, l models.Listing) error {
	if l.Price.Valid && l.Price.Value < 0 {
		return &apperrors.ParseError{Row: row, Column: string(models.ColPrice), Value: l.Price.String(), Err: errors.New("must not be negative")}
	}
	if l.Availability365 < 0 || l.Availability365 > 365 {
		return &apperrors.ParseError{Row: row, Column: string(models.ColAvailability365), Value: fmt.Sprint(l.Availability365), Err: errors.New("must be within 0-365")}
	}
	return nil
}

func (pr *PostgresReader) Close() error {
	return pr.db.Close()
}
