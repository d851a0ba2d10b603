// internal/app/system/paging/paging.go
package paging

import (
	"math"
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize is used when the client does not send pageSize.
const DefaultPageSize = 10

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 100

// MaxPageNumber caps client-requested page numbers so Skip stays
// non-negative.
const MaxPageNumber = math.MaxInt32

// Params is a page-number request: PageNumber is 1-based.
type Params struct {
	PageSize   int
	PageNumber int
}

// Default returns the first page with the default size.
func Default() Params {
	return Params{PageSize: DefaultPageSize, PageNumber: 1}
}

// ParseParams reads pageSize and pageNumber from the query string.
// Missing or invalid values fall back to the defaults; sizes are clamped
// to MaxPageSize and page numbers to MaxPageNumber.
func ParseParams(r *http.Request) Params {
	return Params{
		PageSize:   parsePositive(query.Get(r, "pageSize"), DefaultPageSize),
		PageNumber: parsePositive(query.Get(r, "pageNumber"), 1),
	}.Normalize()
}

// Normalize clamps p into the valid range.
func (p Params) Normalize() Params {
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageNumber > MaxPageNumber {
		p.PageNumber = MaxPageNumber
	}
	return p
}

// Skip is the number of documents before the requested page.
func (p Params) Skip() int64 {
	p = p.Normalize()
	return int64(p.PageNumber-1) * int64(p.PageSize)
}

// ApplyToFind sets skip and limit on find.
func (p Params) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	p = p.Normalize()
	return find.SetSkip(p.Skip()).SetLimit(int64(p.PageSize))
}

// Meta describes a page in API responses.
type Meta struct {
	TotalCount int64 `json:"totalCount"`
	PageSize   int   `json:"pageSize"`
	PageNumber int   `json:"pageNumber"`
	TotalPages int64 `json:"totalPages"`
	Skip       int64 `json:"skip"`
}

// NewMeta builds the response metadata for total matching documents.
func NewMeta(total int64, p Params) Meta {
	p = p.Normalize()
	size := int64(p.PageSize)
	return Meta{
		TotalCount: total,
		PageSize:   p.PageSize,
		PageNumber: p.PageNumber,
		TotalPages: (total + size - 1) / size,
		Skip:       p.Skip(),
	}
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
