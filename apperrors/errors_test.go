package apperrors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := New(KindEmptyInput, "no rows for %s", "price")

	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.NotErrorIs(t, err, ErrInsufficientRows)
	assert.Equal(t, "empty_input: no rows for price", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, KindSourceUnavailable, "read %s", "listings.csv")

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Nil(t, Wrap(nil, KindParse, "ignored"))
}

func TestKindOfThroughWrapping(t *testing.T) {
	inner := New(KindInvalidRange, "min > max")
	wrapped := fmt.Errorf("reviews view: %w", inner)

	assert.Equal(t, KindInvalidRange, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestParseErrorMatchesSentinel(t *testing.T) {
	err := &ParseError{Row: 3, Column: "price", Value: "abc", Err: errors.New("not a number")}

	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, KindParse, KindOf(err))
	assert.Contains(t, err.Error(), `row 3, column "price"`)
}

func TestWithDetail(t *testing.T) {
	err := New(KindInsufficientRows, "sample").WithDetail("requested", 5).WithDetail("available", 2)

	assert.Equal(t, 5, err.Details["requested"])
	assert.Equal(t, 2, err.Details["available"])
}
