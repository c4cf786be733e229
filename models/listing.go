package models

import (
	"strconv"
)

// RawListing holds one CSV row as text, before any cleaning or type
// conversion. Row is the 1-based line number in the source (header = 1).
type RawListing struct {
	Row                         int
	ID                          string
	Name                        string
	HostID                      string
	HostName                    string
	NeighbourhoodGroup          string
	Neighbourhood               string
	Latitude                    string
	Longitude                   string
	RoomType                    string
	Price                       string
	MinimumNights               string
	NumberOfReviews             string
	LastReview                  string
	ReviewsPerMonth             string
	CalculatedHostListingsCount string
	Availability365             string
}

// Set assigns the text of a single column. Unknown columns are ignored.
func (r *RawListing) Set(col Column, value string) {
	switch col {
	case ColID:
		r.ID = value
	case ColName:
		r.Name = value
	case ColHostID:
		r.HostID = value
	case ColHostName:
		r.HostName = value
	case ColNeighbourhoodGroup:
		r.NeighbourhoodGroup = value
	case ColNeighbourhood:
		r.Neighbourhood = value
	case ColLatitude:
		r.Latitude = value
	case ColLongitude:
		r.Longitude = value
	case ColRoomType:
		r.RoomType = value
	case ColPrice:
		r.Price = value
	case ColMinimumNights:
		r.MinimumNights = value
	case ColNumberOfReviews:
		r.NumberOfReviews = value
	case ColLastReview:
		r.LastReview = value
	case ColReviewsPerMonth:
		r.ReviewsPerMonth = value
	case ColCalculatedHostListingsCount:
		r.CalculatedHostListingsCount = value
	case ColAvailability365:
		r.Availability365 = value
	}
}

// Listing is one cleaned, typed record of the dataset.
type Listing struct {
	ID                          int64     `json:"id"`
	Name                        string    `json:"name"`
	HostID                      int64     `json:"host_id"`
	HostName                    string    `json:"host_name"`
	NeighbourhoodGroup          string    `json:"neighbourhood_group"`
	Neighbourhood               string    `json:"neighbourhood"`
	Latitude                    NullFloat `json:"latitude"`
	Longitude                   NullFloat `json:"longitude"`
	RoomType                    string    `json:"room_type"`
	Price                       NullFloat `json:"price"`
	MinimumNights               int       `json:"minimum_nights"`
	NumberOfReviews             int       `json:"number_of_reviews"`
	LastReview                  string    `json:"last_review,omitempty"`
	ReviewsPerMonth             NullFloat `json:"reviews_per_month"`
	CalculatedHostListingsCount int       `json:"calculated_host_listings_count"`
	Availability365             int       `json:"availability_365"`
}

// Number returns the numeric value of col. ok is false when the column is not
// numeric or the value is absent.
func (l Listing) Number(col Column) (v float64, ok bool) {
	switch col {
	case ColID:
		return float64(l.ID), true
	case ColHostID:
		return float64(l.HostID), true
	case ColLatitude:
		return l.Latitude.Get()
	case ColLongitude:
		return l.Longitude.Get()
	case ColPrice:
		return l.Price.Get()
	case ColMinimumNights:
		return float64(l.MinimumNights), true
	case ColNumberOfReviews:
		return float64(l.NumberOfReviews), true
	case ColReviewsPerMonth:
		return l.ReviewsPerMonth.Get()
	case ColCalculatedHostListingsCount:
		return float64(l.CalculatedHostListingsCount), true
	case ColAvailability365:
		return float64(l.Availability365), true
	}
	return 0, false
}

// Int returns the exact value of an integer column. ok is false for other
// columns. Identifiers exceed 2^53, so compare them here rather than through
// Number.
func (l Listing) Int(col Column) (v int64, ok bool) {
	switch col {
	case ColID:
		return l.ID, true
	case ColHostID:
		return l.HostID, true
	case ColMinimumNights:
		return int64(l.MinimumNights), true
	case ColNumberOfReviews:
		return int64(l.NumberOfReviews), true
	case ColCalculatedHostListingsCount:
		return int64(l.CalculatedHostListingsCount), true
	case ColAvailability365:
		return int64(l.Availability365), true
	}
	return 0, false
}

// Text returns the value of a text column. ok is false for non-text columns.
func (l Listing) Text(col Column) (s string, ok bool) {
	switch col {
	case ColName:
		return l.Name, true
	case ColHostName:
		return l.HostName, true
	case ColNeighbourhoodGroup:
		return l.NeighbourhoodGroup, true
	case ColNeighbourhood:
		return l.Neighbourhood, true
	case ColRoomType:
		return l.RoomType, true
	case ColLastReview:
		return l.LastReview, l.LastReview != ""
	}
	return "", false
}

// Key returns a grouping key for col: text as-is, integers in base 10,
// floats in shortest form. ok is false when the value is absent.
func (l Listing) Key(col Column) (string, bool) {
	switch col {
	case ColID:
		return strconv.FormatInt(l.ID, 10), true
	case ColHostID:
		return strconv.FormatInt(l.HostID, 10), true
	}
	switch col.Kind() {
	case KindText:
		return l.Text(col)
	case KindInt:
		v, ok := l.Number(col)
		return strconv.FormatInt(int64(v), 10), ok
	case KindFloat:
		v, ok := l.Number(col)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return "", false
}
