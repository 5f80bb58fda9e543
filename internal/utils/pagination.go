// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// Page is a 1-based window of Size rows over an ordered list.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows preceding the page. Invalid pages start at 0.
func (p Page) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ParsePage reads page and page_size query values. A missing or unparsable
// number selects page 1; a missing or unparsable size selects defSize, and
// the size is kept within [1, maxSize]. The number is capped so that the
// offset of any page fits in an int.
func ParsePage(number, size string, defSize, maxSize int) Page {
	return Page{
		Number: Clamp(IntOr(number, 1), 1, math.MaxInt/max(maxSize, 1)),
		Size:   Clamp(IntOr(size, defSize), 1, maxSize),
	}
}

// IntOr parses s as a base-10 int, ignoring surrounding spaces, and returns
// def when s is blank or not a number.
func IntOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Clamp bounds v to [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
