package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage bounds the page number so Offset stays well inside int range.
	MaxPage = 1_000_000
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts page and page_size from the query string. Missing or
// out-of-range values are clamped: page to 1..MaxPage, page_size to
// 1..MaxPageSize with DefaultPageSize when absent.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Params{Page: page, PageSize: size}
}

// Limit is the SQL LIMIT for this page.
func (p Params) Limit() int { return p.PageSize }

// Offset is the SQL OFFSET for this page.
func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

// Meta is the pagination block returned alongside list data.
type Meta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Meta builds the response meta for a result set of the given total size.
func (p Params) Meta(total int) Meta {
	return Meta{Page: p.Page, PageSize: p.PageSize, Total: total}
}
