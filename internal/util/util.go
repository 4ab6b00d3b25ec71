package util

import (
	"math"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Round Method to round to 2 decimals
func Round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Percent returns part as a percentage of total rounded to 2 decimals, 0 when
// total is 0.
func Percent[T ~int | ~int64 | ~uint64](part, total T) float64 {
	if total == 0 {
		return 0
	}
	return Round(float64(part) * 100 / float64(total))
}
