package services

import (
	"context"
	"errors"
	"math"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/cache"
	"airbnb-explorer/models"
	"airbnb-explorer/query"
	"airbnb-explorer/utils"
	"airbnb-explorer/validation"
)

// AvailabilityPercentiles are reported by Availability.
var AvailabilityPercentiles = []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.99}

// Options tune the explorer views.
type Options struct {
	ExpensiveThreshold float64 // price at and above which a listing is expensive
	AffordableCeiling  float64 // availability excludes prices at or above this unless asked
	PriceSliderCap     float64 // upper clip of PriceBounds.Max
	SampleSeed         int64
	ReviewsLimit       int
	MaxConcurrency     int
}

// DefaultOptions returns the options the explorer ships with.
func DefaultOptions() Options {
	return Options{
		ExpensiveThreshold: 800,
		AffordableCeiling:  200,
		PriceSliderCap:     1000,
		SampleSeed:         4,
		ReviewsLimit:       50,
		MaxConcurrency:     4,
	}
}

const (
	opGroups        = "neighbourhood_groups"
	opExpensiveLocs = "expensive_locations"
	opMostExpensive = "most_expensive"
	opRoomTypes     = "avg_price_by_room_type"
	opTopHosts      = "top_hosts"
	opPriceBounds   = "price_bounds"
	opPrices        = "price_distribution"
	opAvailability  = "availability"
	opAvailByGroup  = "avg_availability_by_group"
	opReviews       = "listings_by_reviews"
)

type topHostsParams struct {
	Hosts, PerHost int
}

type availabilityParams struct {
	Group            string
	IncludeExpensive bool
}

type reviewsParams struct {
	Range validation.Range[int]
	Limit int
}

// generation pairs a table with the views derived from it so both are
// replaced together.
type generation struct {
	table *models.Table
	views *cache.ViewCache
}

// Explorer serves the derived views of one source. Results are cached per
// table generation; callers must not modify returned slices.
type Explorer struct {
	tables  *cache.FetchCache
	locator string
	opts    Options
	logger  *utils.Logger

	mu      sync.Mutex
	current atomic.Pointer[generation]
}

// NewExplorer creates an Explorer that loads locator through tables on first
// use.
func NewExplorer(tables *cache.FetchCache, locator string, opts Options, logger *utils.Logger) *Explorer {
	return &Explorer{
		tables:  tables,
		locator: locator,
		opts:    opts,
		logger:  logger.Named("explorer"),
	}
}

// Locator is the source this explorer reads.
func (e *Explorer) Locator() string { return e.locator }

func (e *Explorer) snapshot(ctx context.Context) (*generation, error) {
	if g := e.current.Load(); g != nil {
		return g, nil
	}
	t, err := e.tables.GetOrLoad(ctx, e.locator)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if g := e.current.Load(); g != nil {
		return g, nil
	}
	g := &generation{table: t, views: cache.NewViewCache()}
	e.current.Store(g)
	return g, nil
}

// Reload drops the cached table, loads the source again and swaps in the new
// table together with an empty view cache. On failure the previous
// generation keeps serving.
func (e *Explorer) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tables.Invalidate(e.locator)
	t, err := e.tables.GetOrLoad(ctx, e.locator)
	if err != nil {
		e.logger.Warn("[explorer] Reload of %s failed, keeping previous table: %v", e.locator, err)
		return err
	}
	old := e.current.Swap(&generation{table: t, views: cache.NewViewCache()})
	if old != nil {
		old.views.Reset()
	}
	e.logger.Info("[explorer] Reloaded %s: %d listings", e.locator, t.Len())
	return nil
}

// Table returns the current table.
func (e *Explorer) Table(ctx context.Context) (*models.Table, error) {
	g, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return g.table, nil
}

// Info describes the current table and its load diagnostics.
func (e *Explorer) Info(ctx context.Context) (models.SourceInfo, error) {
	t, err := e.Table(ctx)
	if err != nil {
		return models.SourceInfo{}, err
	}
	info := models.SourceInfo{
		Source:   t.Source(),
		LoadedAt: t.LoadedAt(),
		Rows:     t.Len(),
		Skipped:  t.Skipped(),
	}
	for _, p := range t.Problems() {
		info.Problems = append(info.Problems, p.Error())
	}
	return info, nil
}

// view computes a value from the current table once per key and generation.
func view[V any](ctx context.Context, e *Explorer, key cache.Key, compute func(*models.Table) (V, error)) (V, error) {
	g, err := e.snapshot(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	return cache.ComputeOrFetch(g.views, key, func() (V, error) {
		e.logger.Debug("[explorer] Computing %s", key)
		return compute(g.table)
	})
}

// Head returns the first n listings.
func (e *Explorer) Head(ctx context.Context, n int) (*models.Table, error) {
	if n < 0 {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "n must not be negative, got %d", n)
	}
	t, err := e.Table(ctx)
	if err != nil {
		return nil, err
	}
	return query.Head(t, n), nil
}

// NeighbourhoodGroups lists the neighbourhood groups in first-seen order.
func (e *Explorer) NeighbourhoodGroups(ctx context.Context) ([]string, error) {
	return view(ctx, e, cache.Key{Op: opGroups}, func(t *models.Table) ([]string, error) {
		return query.Unique(t, models.ColNeighbourhoodGroup)
	})
}

func (e *Explorer) expensive() query.Predicate {
	return query.Where(query.Ge(models.ColPrice, e.opts.ExpensiveThreshold))
}

// ExpensiveLocations returns the coordinates of expensive listings. Listings
// without both coordinates are left out.
func (e *Explorer) ExpensiveLocations(ctx context.Context) ([]models.Point, error) {
	return view(ctx, e, cache.Key{Op: opExpensiveLocs}, func(t *models.Table) ([]models.Point, error) {
		p := e.expensive().And(query.Present(models.ColLatitude), query.Present(models.ColLongitude))
		found, err := query.Filter(t, p)
		if err != nil {
			return nil, err
		}
		points := make([]models.Point, found.Len())
		for i := range points {
			l := found.Row(i)
			points[i] = models.Point{Latitude: l.Latitude.Value, Longitude: l.Longitude.Value}
		}
		return points, nil
	})
}

// MostExpensive returns up to n expensive listings, highest price first.
func (e *Explorer) MostExpensive(ctx context.Context, n int) (*models.Table, error) {
	return view(ctx, e, cache.Key{Op: opMostExpensive, Params: n}, func(t *models.Table) (*models.Table, error) {
		found, err := query.Filter(t, e.expensive())
		if err != nil {
			return nil, err
		}
		return query.TopN(found, models.ColPrice, n)
	})
}

// AveragePriceByRoomType returns the mean price per room type rounded to
// cents, highest first.
func (e *Explorer) AveragePriceByRoomType(ctx context.Context) ([]models.GroupValue, error) {
	return view(ctx, e, cache.Key{Op: opRoomTypes}, func(t *models.Table) ([]models.GroupValue, error) {
		means, err := query.GroupAggregate(t, models.ColRoomType, models.ColPrice, query.Mean)
		if err != nil {
			return nil, err
		}
		for k, v := range means {
			means[k] = round2(v)
		}
		return query.RankGroups(means), nil
	})
}

// TopHosts returns the hosts with the most listings, each with a seeded
// sample of up to perHost of their listings.
func (e *Explorer) TopHosts(ctx context.Context, hosts, perHost int) ([]models.HostListings, error) {
	if hosts < 0 || perHost < 0 {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "hosts and perHost must not be negative")
	}
	key := cache.Key{Op: opTopHosts, Params: topHostsParams{Hosts: hosts, PerHost: perHost}}
	return view(ctx, e, key, func(t *models.Table) ([]models.HostListings, error) {
		counts, err := query.ValueCounts(t, models.ColHostID)
		if err != nil {
			return nil, err
		}
		if len(counts) > hosts {
			counts = counts[:hosts]
		}

		out := make([]models.HostListings, 0, len(counts))
		for _, c := range counts {
			id, err := strconv.ParseInt(c.Value, 10, 64)
			if err != nil {
				return nil, err
			}
			owned, err := query.Filter(t, query.Where(query.EqInt(models.ColHostID, id)))
			if err != nil {
				return nil, err
			}
			sample, err := query.Sample(owned, min(perHost, owned.Len()), e.opts.SampleSeed)
			if err != nil {
				return nil, err
			}
			out = append(out, models.HostListings{
				HostID:   id,
				HostName: owned.Row(0).HostName,
				Count:    c.Count,
				Sample:   sample.Rows(),
			})
		}
		return out, nil
	})
}

// PriceBounds returns the lowest price and the highest price clipped to the
// slider cap.
func (e *Explorer) PriceBounds(ctx context.Context) (models.PriceBounds, error) {
	return view(ctx, e, cache.Key{Op: opPriceBounds}, func(t *models.Table) (models.PriceBounds, error) {
		s, err := query.Describe(t, models.ColPrice, []float64{})
		if err != nil {
			return models.PriceBounds{}, err
		}
		return models.PriceBounds{Min: s.Min, Max: math.Min(s.Max, e.opts.PriceSliderCap)}, nil
	})
}

// PriceDistribution returns the prices within r in table order, ready for
// binning.
func (e *Explorer) PriceDistribution(ctx context.Context, r validation.Range[float64]) ([]float64, error) {
	return view(ctx, e, cache.Key{Op: opPrices, Params: r}, func(t *models.Table) ([]float64, error) {
		found, err := query.Filter(t, query.Where(query.InRange(models.ColPrice, r)))
		if err != nil {
			return nil, err
		}
		prices := make([]float64, found.Len())
		for i := range prices {
			prices[i] = found.Row(i).Price.Value
		}
		return prices, nil
	})
}

// Availability describes availability_365 for one neighbourhood group,
// ignoring listings that are never available. Unless includeExpensive is
// set, listings at or above the affordable ceiling are left out.
func (e *Explorer) Availability(ctx context.Context, group string, includeExpensive bool) (models.Summary, error) {
	groups, err := e.NeighbourhoodGroups(ctx)
	if err != nil {
		return models.Summary{}, err
	}
	if !slices.Contains(groups, group) {
		return models.Summary{}, apperrors.New(apperrors.KindInvalidArgument, "unknown neighbourhood group %q", group).
			WithDetail("groups", groups)
	}

	key := cache.Key{Op: opAvailability, Params: availabilityParams{Group: group, IncludeExpensive: includeExpensive}}
	return view(ctx, e, key, func(t *models.Table) (models.Summary, error) {
		p := query.Where(
			query.Is(models.ColNeighbourhoodGroup, group),
			query.Gt(models.ColAvailability365, 0),
		)
		if !includeExpensive {
			p = p.And(query.Lt(models.ColPrice, e.opts.AffordableCeiling))
		}
		found, err := query.Filter(t, p)
		if err != nil {
			return models.Summary{}, err
		}
		return query.Describe(found, models.ColAvailability365, AvailabilityPercentiles)
	})
}

// AverageAvailabilityByGroup returns the mean availability of listings that
// are available at all, per neighbourhood group in name order.
func (e *Explorer) AverageAvailabilityByGroup(ctx context.Context) ([]models.GroupValue, error) {
	return view(ctx, e, cache.Key{Op: opAvailByGroup}, func(t *models.Table) ([]models.GroupValue, error) {
		found, err := query.Filter(t, query.Where(query.Gt(models.ColAvailability365, 0)))
		if err != nil {
			return nil, err
		}
		means, err := query.GroupAggregate(found, models.ColNeighbourhoodGroup, models.ColAvailability365, query.Mean)
		if err != nil {
			return nil, err
		}
		out := make([]models.GroupValue, 0, len(means))
		for k, v := range means {
			out = append(out, models.GroupValue{Group: k, Value: v})
		}
		slices.SortFunc(out, func(a, b models.GroupValue) int {
			switch {
			case a.Group < b.Group:
				return -1
			case a.Group > b.Group:
				return 1
			}
			return 0
		})
		return out, nil
	})
}

// ListingsByReviews returns listings whose review count lies in r, most
// reviewed first, capped at the configured limit.
func (e *Explorer) ListingsByReviews(ctx context.Context, r validation.Range[int]) (*models.Table, error) {
	key := cache.Key{Op: opReviews, Params: reviewsParams{Range: r, Limit: e.opts.ReviewsLimit}}
	return view(ctx, e, key, func(t *models.Table) (*models.Table, error) {
		found, err := query.Filter(t, query.Where(query.InCountRange(models.ColNumberOfReviews, r)))
		if err != nil {
			return nil, err
		}
		return query.TopN(found, models.ColNumberOfReviews, e.opts.ReviewsLimit)
	})
}

// Warm loads the source and precomputes the per-group views on a bounded
// worker pool. Groups with no qualifying listings are not an error.
func (e *Explorer) Warm(ctx context.Context) error {
	groups, err := e.NeighbourhoodGroups(ctx)
	if err != nil {
		return err
	}

	pool := utils.NewWorkerPool(e.opts.MaxConcurrency, 0)
	jobs := []func(context.Context) error{
		func(ctx context.Context) error { _, err := e.ExpensiveLocations(ctx); return err },
		func(ctx context.Context) error { _, err := e.AveragePriceByRoomType(ctx); return err },
		func(ctx context.Context) error { _, err := e.PriceBounds(ctx); return err },
		func(ctx context.Context) error { _, err := e.AverageAvailabilityByGroup(ctx); return err },
	}
	for _, g := range groups {
		for _, include := range []bool{false, true} {
			jobs = append(jobs, func(ctx context.Context) error {
				_, err := e.Availability(ctx, g, include)
				if errors.Is(err, apperrors.ErrEmptyInput) {
					return nil
				}
				return err
			})
		}
	}

	for _, job := range jobs {
		if err := pool.Submit(ctx, job); err != nil {
			break
		}
	}
	if err := pool.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Info("[explorer] Warmed %d views for %d neighbourhood groups", len(jobs), len(groups))
	return nil
}

// Report computes the standard views in one go. Views that have no data are
// left empty rather than failing the report.
func (e *Explorer) Report(ctx context.Context) (*models.Report, error) {
	info, err := e.Info(ctx)
	if err != nil {
		return nil, err
	}
	r := &models.Report{Info: info}

	head, err := e.Head(ctx, 5)
	if err != nil {
		return nil, err
	}
	r.Head = head.Rows()

	if pts, err := e.ExpensiveLocations(ctx); err == nil {
		r.ExpensiveCount = len(pts)
	} else {
		return nil, err
	}
	if top, err := e.MostExpensive(ctx, 5); err == nil {
		r.MostExpensive = top.Rows()
	} else {
		return nil, err
	}
	if r.RoomTypes, err = e.AveragePriceByRoomType(ctx); err != nil {
		return nil, err
	}
	if r.TopHosts, err = e.TopHosts(ctx, 2, 2); err != nil {
		return nil, err
	}
	if r.PriceBounds, err = e.PriceBounds(ctx); err != nil && !errors.Is(err, apperrors.ErrEmptyInput) {
		return nil, err
	}

	groups, err := e.NeighbourhoodGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		s, err := e.Availability(ctx, g, false)
		if errors.Is(err, apperrors.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return nil, err
		}
		r.Availability = append(r.Availability, models.GroupSummary{Group: g, Summary: s})
	}
	if r.AvailabilityByGroup, err = e.AverageAvailabilityByGroup(ctx); err != nil {
		return nil, err
	}

	reviews, err := validation.ValidateCountRange(0, 5)
	if err != nil {
		return nil, err
	}
	most, err := e.ListingsByReviews(ctx, reviews)
	if err != nil {
		return nil, err
	}
	r.MostReviewed = query.Head(most, 5).Rows()
	return r, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
