package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
	"airbnb-explorer/utils"
)

var (
	// priceRegexp accepts plain numbers and currency text such as "$1,200.00".
	priceRegexp = regexp.MustCompile(`^\$?\s*([\d,]+(?:\.\d+)?)$`)

	errNegative = errors.New("must not be negative")
)

// Cleaner transforms RawListings into typed Listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts raw rows. A row that fails conversion, or repeats an id
// already seen, is skipped and reported in the returned stats; the remaining
// rows keep their source order.
func (c *Cleaner) Clean(raw []*models.RawListing) ([]models.Listing, models.LoadStats) {
	seen := make(map[int64]int, len(raw))
	result := make([]models.Listing, 0, len(raw))
	var stats models.LoadStats

	for _, r := range raw {
		listing, err := c.convert(r)
		if err == nil {
			if first, dup := seen[listing.ID]; dup {
				err = &apperrors.ParseError{
					Row:    r.Row,
					Column: string(models.ColID),
					Value:  r.ID,
					Err:    fmt.Errorf("duplicate id, first seen on row %d", first),
				}
			}
		}
		if err != nil {
			stats.Skipped++
			if len(stats.Problems) < models.MaxProblems {
				stats.Problems = append(stats.Problems, err)
			}
			c.logger.Debug("[cleaner] Skipping row: %v", err)
			continue
		}

		seen[listing.ID] = r.Row
		result = append(result, listing)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (skipped %d)",
		len(raw), len(result), stats.Skipped)
	return result, stats
}

func (c *Cleaner) convert(r *models.RawListing) (models.Listing, error) {
	p := rowParser{row: r.Row}
	l := models.Listing{
		ID:                          p.parseInt64(models.ColID, r.ID),
		Name:                        normaliseText(r.Name),
		HostID:                      p.parseInt64(models.ColHostID, r.HostID),
		HostName:                    normaliseText(r.HostName),
		NeighbourhoodGroup:          normaliseText(r.NeighbourhoodGroup),
		Neighbourhood:               normaliseText(r.Neighbourhood),
		Latitude:                    p.optFloat(models.ColLatitude, r.Latitude),
		Longitude:                   p.optFloat(models.ColLongitude, r.Longitude),
		RoomType:                    normaliseText(r.RoomType),
		Price:                       p.price(r.Price),
		MinimumNights:               p.parseInt(models.ColMinimumNights, r.MinimumNights, false),
		NumberOfReviews:             p.parseInt(models.ColNumberOfReviews, r.NumberOfReviews, true),
		LastReview:                  strings.TrimSpace(r.LastReview),
		ReviewsPerMonth:             p.optFloat(models.ColReviewsPerMonth, r.ReviewsPerMonth),
		CalculatedHostListingsCount: p.parseInt(models.ColCalculatedHostListingsCount, r.CalculatedHostListingsCount, false),
		Availability365:             p.parseInt(models.ColAvailability365, r.Availability365, true),
	}
	if p.err == nil && (l.Availability365 < 0 || l.Availability365 > 365) {
		p.fail(models.ColAvailability365, r.Availability365, errors.New("must be within 0-365"))
	}
	return l, p.err
}

// rowParser converts the fields of one row, keeping the first error.
type rowParser struct {
	row int
	err error
}

func (p *rowParser) fail(col models.Column, value string, err error) {
	if p.err == nil {
		p.err = &apperrors.ParseError{Row: p.row, Column: string(col), Value: value, Err: err}
	}
}

func (p *rowParser) parseInt64(col models.Column, raw string) int64 {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail(col, raw, err)
		return 0
	}
	return v
}

// parseInt parses an integer column. Empty cells read as 0 unless required.
func (p *rowParser) parseInt(col models.Column, raw string, required bool) int {
	s := strings.TrimSpace(raw)
	if s == "" && !required {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(col, raw, err)
		return 0
	}
	if v < 0 {
		p.fail(col, raw, errNegative)
	}
	return v
}

// optFloat parses a float column where an empty cell means absent.
func (p *rowParser) optFloat(col models.Column, raw string) models.NullFloat {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.Absent()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(col, raw, err)
		return models.Absent()
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(col, raw, errors.New("not a finite number"))
		return models.Absent()
	}
	return models.Float(v)
}

func (p *rowParser) price(raw string) models.NullFloat {
	v, ok, err := parsePrice(raw)
	if err != nil {
		p.fail(models.ColPrice, raw, err)
		return models.Absent()
	}
	if !ok {
		return models.Absent()
	}
	return models.Float(v)
}

// parsePrice extracts a non-negative price. ok is false for an empty cell.
// Examples:
//
//	"150"       → 150
//	"$1,200.00" → 1200
//	""          → absent
func parsePrice(raw string) (v float64, ok bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, false, errNegative
	}
	match := priceRegexp.FindStringSubmatch(s)
	if len(match) < 2 {
		return 0, false, errors.New("not a price")
	}
	v, err = strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
