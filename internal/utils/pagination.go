// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a normalized page request.
type Page struct {
	Page     int
	PageSize int
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }

// ParsePage reads page/page_size query values. Missing or invalid values
// fall back to page 1 and def; page_size is capped at max.
func ParsePage(page, size string, def, max int) Page {
	p := AtoiDefault(strings.TrimSpace(page), 1)
	if p < 1 {
		p = 1
	}
	n := AtoiDefault(strings.TrimSpace(size), def)
	if n < 1 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return Page{Page: p, PageSize: n}
}

// TotalPages returns how many pages of size hold total rows.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
