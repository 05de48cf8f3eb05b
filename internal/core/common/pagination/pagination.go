package pagination

import "strconv"

type Params struct {
	Page    int
	PerPage int
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p Params) Limit() int {
	return p.PerPage
}

// Normalize clamps page to >= 1 and per_page to [1, maxSize], using defaultSize when unset.
func Normalize(page, perPage, defaultSize, maxSize int) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultSize
	}
	if perPage > maxSize {
		perPage = maxSize
	}
	return Params{Page: page, PerPage: perPage}
}

// Parse reads the raw page and per_page query values; malformed numbers fall back to defaults.
func Parse(rawPage, rawPerPage string, defaultSize, maxSize int) Params {
	page, _ := strconv.Atoi(rawPage)
	perPage, _ := strconv.Atoi(rawPerPage)
	return Normalize(page, perPage, defaultSize, maxSize)
}

type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

func New(p Params, total int64) Pagination {
	totalPages := 0
	if p.PerPage > 0 {
		totalPages = int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}
	return Pagination{
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     p.Page < totalPages,
		HasPrev:     p.Page > 1,
	}
}

type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: New(p, total)}
}
