package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullFloatJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A NullFloat `json:"a"`
		B NullFloat `json:"b"`
	}{A: Float(12.5), B: Absent()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5,"b":null}`, string(b))

	var back struct {
		A NullFloat `json:"a"`
		B NullFloat `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Float(12.5), back.A)
	assert.False(t, back.B.Valid)
}

func TestNullFloatScan(t *testing.T) {
	var n NullFloat
	require.NoError(t, n.Scan(nil))
	assert.False(t, n.Valid)

	require.NoError(t, n.Scan(float64(40.7)))
	assert.Equal(t, Float(40.7), n)
}

func TestListingAccessors(t *testing.T) {
	l := Listing{ID: 53000000000000001, HostID: 7, RoomType: "Entire home/apt", Price: Absent(), Availability365: 10}

	_, ok := l.Number(ColPrice)
	assert.False(t, ok, "absent price must not read as a number")

	v, ok := l.Number(ColAvailability365)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	key, ok := l.Key(ColID)
	assert.True(t, ok)
	assert.Equal(t, "53000000000000001", key)

	id, ok := l.Int(ColID)
	assert.True(t, ok)
	assert.Equal(t, int64(53000000000000001), id)

	_, ok = l.Int(ColPrice)
	assert.False(t, ok)

	_, ok = l.Text(ColPrice)
	assert.False(t, ok)
}

func TestColumnKinds(t *testing.T) {
	assert.Len(t, Columns(), 16)
	assert.True(t, ColPrice.Numeric())
	assert.False(t, ColRoomType.Numeric())
	assert.Equal(t, KindUnknown, Column("bogus").Kind())

	c, ok := ParseColumn("availability_365")
	assert.True(t, ok)
	assert.Equal(t, ColAvailability365, c)
}

func TestTableColumns(t *testing.T) {
	tbl := NewTable("mem", []Listing{
		{ID: 1, RoomType: "A", Price: Float(100)},
		{ID: 2, RoomType: "B", Price: Absent()},
	}, LoadStats{Skipped: 3})

	prices, err := tbl.Floats(ColPrice)
	require.NoError(t, err)
	assert.Equal(t, []NullFloat{Float(100), Absent()}, prices)

	rooms, err := tbl.Texts(ColRoomType)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, rooms)

	_, err = tbl.Floats(ColRoomType)
	assert.Error(t, err)

	assert.Equal(t, 3, tbl.Skipped())
	assert.Equal(t, 0, tbl.Derive(nil).Skipped())
	assert.Equal(t, "mem", tbl.Derive(nil).Source())
}
