package domain

import (
	"math"
	"strconv"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// ParsePage reads page/limit query values, clamping to sane bounds.
func ParsePage(page, limit string) Page {
	p := Page{Number: 1, Limit: DefaultPageLimit}
	if n, err := strconv.Atoi(page); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(limit); err == nil && n > 0 {
		p.Limit = min(n, MaxPageLimit)
	}
	p.Number = min(p.Number, maxPage(p.Limit))
	return p
}

// maxPage keeps the row offset within int32; pages past the data are empty anyway.
func maxPage(limit int) int {
	if limit < 1 {
		limit = 1
	}
	return math.MaxInt32 / limit
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (min(p.Number, maxPage(p.Limit)) - 1) * p.Limit
}

// TotalPages returns ceil(total / limit).
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}
