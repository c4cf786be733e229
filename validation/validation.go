// Package validation checks user-supplied parameters before they reach the
// query engine. A Range can only be obtained through ValidateRange or
// ValidateCountRange, so code that accepts one never sees min > max.
package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"airbnb-explorer/apperrors"
)

// Number is the set of bound types a Range accepts.
type Number interface {
	~int | ~int64 | ~float64
}

// Range is a closed interval [min, max] with min <= max. The zero value is
// the degenerate range [0, 0].
type Range[T Number] struct {
	min, max T
}

func (r Range[T]) Min() T { return r.min }
func (r Range[T]) Max() T { return r.max }

// Contains reports whether v lies in [min, max].
func (r Range[T]) Contains(v T) bool {
	return v >= r.min && v <= r.max
}

func (r Range[T]) String() string {
	return fmt.Sprintf("[%v, %v]", r.min, r.max)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRange returns the range [min, max], or an invalid-range error when
// min > max or either bound is NaN.
func ValidateRange[T Number](min, max T) (Range[T], error) {
	if isNaN(min) || isNaN(max) {
		return Range[T]{}, apperrors.New(apperrors.KindInvalidRange, "range bounds must be numbers").
			WithDetail("min", min).WithDetail("max", max)
	}
	if min > max {
		return Range[T]{}, apperrors.New(apperrors.KindInvalidRange,
			"minimum %v is greater than maximum %v", min, max).
			WithDetail("min", min).WithDetail("max", max)
	}
	return Range[T]{min: min, max: max}, nil
}

type countRange struct {
	Min int `validate:"gte=0"`
	Max int `validate:"gte=0,gtefield=Min"`
}

// ValidateCountRange validates a range of counts (review counts): both bounds
// non-negative and min <= max.
func ValidateCountRange(min, max int) (Range[int], error) {
	if err := validate.Struct(countRange{Min: min, Max: max}); err != nil {
		return Range[int]{}, rangeError(err, min, max)
	}
	return Range[int]{min: min, max: max}, nil
}

type threshold struct {
	Value float64 `validate:"gte=0"`
}

// ValidateThreshold accepts a non-negative price threshold.
func ValidateThreshold(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.New(apperrors.KindInvalidArgument, "threshold must be a finite number")
	}
	if err := validate.Struct(threshold{Value: v}); err != nil {
		return 0, apperrors.New(apperrors.KindInvalidArgument, "threshold %v must not be negative", v)
	}
	return v, nil
}

func rangeError(err error, min, max int) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(err, apperrors.KindInvalidRange, "validate range")
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "gtefield":
		msg = fmt.Sprintf("minimum %d is greater than maximum %d", min, max)
	case "gte":
		msg = fmt.Sprintf("%s must not be negative, got %v", fe.Field(), fe.Value())
	default:
		msg = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
	return apperrors.New(apperrors.KindInvalidRange, "%s", msg).
		WithDetail("min", min).WithDetail("max", max)
}

func isNaN[T Number](v T) bool {
	return math.IsNaN(float64(v))
}
