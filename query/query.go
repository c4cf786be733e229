// Package query holds the read-only operations over a listings Table. Every
// function returns new values and leaves its input untouched.
package query

import (
	"cmp"
	"math/rand"
	"slices"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
)

// Aggregator selects what GroupAggregate computes per group.
type Aggregator int

const (
	Mean Aggregator = iota
	Count
)

func (a Aggregator) String() string {
	switch a {
	case Mean:
		return "mean"
	case Count:
		return "count"
	}
	return "unknown"
}

// Filter returns the rows of t that satisfy p, in their original order.
func Filter(t *models.Table, p Predicate) (*models.Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var rows []models.Listing
	for i := 0; i < t.Len(); i++ {
		if l := t.Row(i); p.Match(l) {
			rows = append(rows, l)
		}
	}
	return t.Derive(rows), nil
}

// SortDescending orders t by numeric col, largest first. Ties keep their
// original order and absent values go last.
func SortDescending(t *models.Table, col models.Column) (*models.Table, error) {
	if !col.Numeric() {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "cannot sort by non-numeric column %q", col)
	}
	rows := t.Rows()
	if col.Kind() == models.KindInt {
		slices.SortStableFunc(rows, func(a, b models.Listing) int {
			av, _ := a.Int(col)
			bv, _ := b.Int(col)
			return cmp.Compare(bv, av)
		})
		return t.Derive(rows), nil
	}
	slices.SortStableFunc(rows, func(a, b models.Listing) int {
		av, aok := a.Number(col)
		bv, bok := b.Number(col)
		switch {
		case aok && bok:
			return cmp.Compare(bv, av)
		case aok:
			return -1
		case bok:
			return 1
		}
		return 0
	})
	return t.Derive(rows), nil
}

// TopN returns the first n rows of t sorted descending by col, or all rows
// when t has fewer than n.
func TopN(t *models.Table, col models.Column, n int) (*models.Table, error) {
	if n < 0 {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "n must not be negative, got %d", n)
	}
	sorted, err := SortDescending(t, col)
	if err != nil {
		return nil, err
	}
	return Head(sorted, n), nil
}

// Head returns the first n rows of t.
func Head(t *models.Table, n int) *models.Table {
	n = max(0, min(n, t.Len()))
	rows := make([]models.Listing, n)
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return t.Derive(rows)
}

// GroupAggregate groups t by groupCol and aggregates valueCol per group.
// Rows where valueCol (or the group key) is absent are left out of their
// group; a group with no present values does not appear in the result.
func GroupAggregate(t *models.Table, groupCol, valueCol models.Column, agg Aggregator) (map[string]float64, error) {
	if groupCol.Kind() == models.KindUnknown {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "unknown group column %q", groupCol)
	}
	if !valueCol.Numeric() {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "cannot aggregate non-numeric column %q", valueCol)
	}
	if agg != Mean && agg != Count {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "unknown aggregator %d", agg)
	}

	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[string]*acc)
	for i := 0; i < t.Len(); i++ {
		l := t.Row(i)
		key, ok := l.Key(groupCol)
		if !ok {
			continue
		}
		v, ok := l.Number(valueCol)
		if !ok {
			continue
		}
		a := groups[key]
		if a == nil {
			a = &acc{}
			groups[key] = a
		}
		a.sum += v
		a.n++
	}

	out := make(map[string]float64, len(groups))
	for k, a := range groups {
		if agg == Count {
			out[k] = float64(a.n)
		} else {
			out[k] = a.sum / float64(a.n)
		}
	}
	return out, nil
}

// RankGroups orders an aggregate by value, largest first; equal values are
// ordered by group name.
func RankGroups(m map[string]float64) []models.GroupValue {
	out := make([]models.GroupValue, 0, len(m))
	for k, v := range m {
		out = append(out, models.GroupValue{Group: k, Value: v})
	}
	slices.SortFunc(out, func(a, b models.GroupValue) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Group, b.Group)
	})
	return out
}

// Sample picks k distinct rows of t pseudo-randomly. The same seed over the
// same table always picks the same rows in the same order.
func Sample(t *models.Table, k int, seed int64) (*models.Table, error) {
	if k < 0 {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "k must not be negative, got %d", k)
	}
	if k > t.Len() {
		return nil, apperrors.New(apperrors.KindInsufficientRows,
			"cannot sample %d rows from %d", k, t.Len()).
			WithDetail("requested", k).WithDetail("available", t.Len())
	}
	perm := rand.New(rand.NewSource(seed)).Perm(t.Len())
	rows := make([]models.Listing, k)
	for i := range rows {
		rows[i] = t.Row(perm[i])
	}
	return t.Derive(rows), nil
}

// ValueCounts counts the distinct values of col, most frequent first. Equal
// counts keep the order in which the values were first seen. Absent values
// are not counted.
func ValueCounts(t *models.Table, col models.Column) ([]models.ValueCount, error) {
	if col.Kind() == models.KindUnknown {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "unknown column %q", col)
	}
	index := make(map[string]int)
	var out []models.ValueCount
	for i := 0; i < t.Len(); i++ {
		key, ok := t.Row(i).Key(col)
		if !ok {
			continue
		}
		if j, seen := index[key]; seen {
			out[j].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, models.ValueCount{Value: key, Count: 1})
	}
	slices.SortStableFunc(out, func(a, b models.ValueCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out, nil
}

// Unique returns the distinct present values of col in first-seen order.
func Unique(t *models.Table, col models.Column) ([]string, error) {
	if col.Kind() == models.KindUnknown {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "unknown column %q", col)
	}
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < t.Len(); i++ {
		key, ok := t.Row(i).Key(col)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}
