package models

// Column names a field of the listings schema. Values match the CSV header.
type Column string

const (
	ColID                          Column = "id"
	ColName                        Column = "name"
	ColHostID                      Column = "host_id"
	ColHostName                    Column = "host_name"
	ColNeighbourhoodGroup          Column = "neighbourhood_group"
	ColNeighbourhood               Column = "neighbourhood"
	ColLatitude                    Column = "latitude"
	ColLongitude                   Column = "longitude"
	ColRoomType                    Column = "room_type"
	ColPrice                       Column = "price"
	ColMinimumNights               Column = "minimum_nights"
	ColNumberOfReviews             Column = "number_of_reviews"
	ColLastReview                  Column = "last_review"
	ColReviewsPerMonth             Column = "reviews_per_month"
	ColCalculatedHostListingsCount Column = "calculated_host_listings_count"
	ColAvailability365             Column = "availability_365"
)

// ColumnKind is the storage type of a column.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindInt
	KindFloat
	KindText
)

var schema = []struct {
	col  Column
	kind ColumnKind
}{
	{ColID, KindInt},
	{ColName, KindText},
	{ColHostID, KindInt},
	{ColHostName, KindText},
	{ColNeighbourhoodGroup, KindText},
	{ColNeighbourhood, KindText},
	{ColLatitude, KindFloat},
	{ColLongitude, KindFloat},
	{ColRoomType, KindText},
	{ColPrice, KindFloat},
	{ColMinimumNights, KindInt},
	{ColNumberOfReviews, KindInt},
	{ColLastReview, KindText},
	{ColReviewsPerMonth, KindFloat},
	{ColCalculatedHostListingsCount, KindInt},
	{ColAvailability365, KindInt},
}

// Columns returns the schema columns in source order.
func Columns() []Column {
	cols := make([]Column, len(schema))
	for i, s := range schema {
		cols[i] = s.col
	}
	return cols
}

// RequiredColumns are the columns a source must provide. The remaining
// columns default to absent/zero when missing from the header.
func RequiredColumns() []Column {
	return []Column{
		ColID, ColHostID, ColNeighbourhoodGroup, ColNeighbourhood,
		ColRoomType, ColPrice, ColNumberOfReviews, ColAvailability365,
	}
}

// ParseColumn maps a header name to a Column.
func ParseColumn(name string) (Column, bool) {
	for _, s := range schema {
		if string(s.col) == name {
			return s.col, true
		}
	}
	return "", false
}

// Kind returns the storage type of c, or KindUnknown.
func (c Column) Kind() ColumnKind {
	for _, s := range schema {
		if s.col == c {
			return s.kind
		}
	}
	return KindUnknown
}

// Numeric reports whether c holds integers or floats.
func (c Column) Numeric() bool {
	k := c.Kind()
	return k == KindInt || k == KindFloat
}
