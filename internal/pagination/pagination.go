// Package pagination implements offset paging shared by every list endpoint.
package pagination

import "math"

// Params is a normalized page request. Page is 1-indexed.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the page that was served.
type Meta struct {
	TotalRecords int
	TotalPages   int
	CurrentPage  int
	Limit        int
}

// Normalize applies defaults and caps limit at max.
func Normalize(page, limit, def, max int) Params {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return Params{Page: page, Limit: limit}
}

// NewMeta computes totals for total records.
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return Meta{TotalRecords: total, TotalPages: totalPages, CurrentPage: p.Page, Limit: p.Limit}
}

// Slice returns the window of items for p. Pages past the end are empty.
func Slice[T any](items []T, p Params) ([]T, Meta) {
	meta := NewMeta(p, len(items))
	start := (p.Page - 1) * p.Limit
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
