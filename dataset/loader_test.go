package dataset

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/fetcher"
	"airbnb-explorer/models"
	"airbnb-explorer/storage"
	"airbnb-explorer/utils"
)

const sampleCSV = `id,name,host_id,host_name,neighbourhood_group,neighbourhood,latitude,longitude,room_type,price,minimum_nights,number_of_reviews,last_review,reviews_per_month,calculated_host_listings_count,availability_365
2595,Skylit Midtown Castle,2845,Jennifer,Manhattan,Midtown,40.75356,-73.98559,Entire home/apt,150,30,48,2019-11-04,0.33,3,338
3831,Whole flr w/private bdrm,4869,LisaRoxanne,Brooklyn,Bedford-Stuyvesant,40.68494,-73.95765,Entire home/apt,75,1,409,2021-08-08,4.86,1,194
5121,BlissArtsSpace!,7356,Garon,Brooklyn,Bedford-Stuyvesant,,,Private room,,30,50,2019-12-02,0.52,2,365
5136,Spacious Brooklyn Duplex,7378,Rebecca,Brooklyn,Sunset Park,40.66265,-73.99454,Entire home/apt,not-a-price,21,1,2014-01-02,0.02,1,0
5178,Large Furnished Room,8967,Shunichi,Manhattan,Midtown,40.76457,-73.98317,Private room,61,2,473,2020-03-15,3.44,1,212
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newLoader() *Loader {
	return NewLoader(fetcher.NewRouter(), nil, utils.NewNopLogger())
}

func TestLoadCSVSkipsAndCountsBadRows(t *testing.T) {
	path := writeFile(t, "listings.csv", []byte(sampleCSV))

	tbl, err := newLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, 1, tbl.Skipped())
	require.Len(t, tbl.Problems(), 1)
	assert.ErrorIs(t, tbl.Problems()[0], apperrors.ErrParse)
	assert.Equal(t, path, tbl.Source())

	absent := tbl.Row(2)
	assert.Equal(t, int64(5121), absent.ID)
	assert.False(t, absent.Price.Valid)
	assert.False(t, absent.Latitude.Valid)
}

func TestLoadGzipSource(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	path := writeFile(t, "listings.csv.gz", buf.Bytes())

	tbl, err := newLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())
}

func TestLoadMissingSource(t *testing.T) {
	_, err := newLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))

	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestLoadSchemaMismatch(t *testing.T) {
	path := writeFile(t, "other.csv", []byte("a,b,c\n1,2,3\n"))

	_, err := newLoader().Load(context.Background(), path)

	assert.ErrorIs(t, err, apperrors.ErrParse)
	assert.NotErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

type fakeDB struct {
	rows   []models.Listing
	closed bool
}

func (f *fakeDB) ReadAll(context.Context) ([]models.Listing, models.LoadStats, error) {
	return f.rows, models.LoadStats{}, nil
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func TestLoadDatabaseLocator(t *testing.T) {
	db := &fakeDB{rows: []models.Listing{{ID: 1, Price: models.Float(10)}}}
	var opened string
	l := NewLoader(fetcher.NewRouter(), func(_ context.Context, locator string) (storage.ListingReader, error) {
		opened = locator
		return db, nil
	}, utils.NewNopLogger())

	tbl, err := l.Load(context.Background(), "postgres://localhost/rental_db")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, "postgres://localhost/rental_db", opened)
	assert.True(t, db.closed)
}

func TestLoadDatabaseUnavailable(t *testing.T) {
	l := NewLoader(fetcher.NewRouter(), func(context.Context, string) (storage.ListingReader, error) {
		return nil, errors.New("connection refused")
	}, utils.NewNopLogger())

	_, err := l.Load(context.Background(), "postgresql://localhost/rental_db")
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestWatchFiresOnWrite(t *testing.T) {
	path := writeFile(t, "listings.csv", []byte(sampleCSV))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, utils.NewNopLogger(), func() {
			atomic.AddInt32(&fired, 1)
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&fired) >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
