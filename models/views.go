package models

import "time"

// Percentile is one requested quantile of a Summary.
type Percentile struct {
	P     float64 `json:"p"`
	Value float64 `json:"value"`
}

// Summary holds descriptive statistics of one numeric column.
type Summary struct {
	Column      Column       `json:"column"`
	Count       int          `json:"count"`
	Mean        float64      `json:"mean"`
	StdDev      NullFloat    `json:"std"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Percentiles []Percentile `json:"percentiles"`
}

// ValueCount is one entry of a value-frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupValue is the aggregate of one group.
type GroupValue struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// Point is a map coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HostListings is a host ranked by listing count, with a sample of listings.
type HostListings struct {
	HostID   int64     `json:"host_id"`
	HostName string    `json:"host_name"`
	Count    int       `json:"count"`
	Sample   []Listing `json:"sample"`
}

// PriceBounds are the extremes offered to a price range selector.
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SourceInfo describes the currently loaded table.
type SourceInfo struct {
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Rows     int       `json:"rows"`
	Skipped  int       `json:"skipped"`
	Problems []string  `json:"problems,omitempty"`
}

// GroupSummary is a Summary computed for one group.
type GroupSummary struct {
	Group   string  `json:"group"`
	Summary Summary `json:"summary"`
}

// Report gathers the standard views of a table for one-shot output.
type Report struct {
	Info                SourceInfo     `json:"info"`
	Head                []Listing      `json:"head"`
	ExpensiveCount      int            `json:"expensive_count"`
	MostExpensive       []Listing      `json:"most_expensive"`
	RoomTypes           []GroupValue   `json:"room_types"`
	TopHosts            []HostListings `json:"top_hosts"`
	PriceBounds         PriceBounds    `json:"price_bounds"`
	Availability        []GroupSummary `json:"availability"`
	AvailabilityByGroup []GroupValue   `json:"availability_by_group"`
	MostReviewed        []Listing      `json:"most_reviewed"`
}
