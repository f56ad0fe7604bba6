package pagination

const (
	// DefaultPageSize replaces any out-of-range page size.
	DefaultPageSize = 10
	// MaxPageSize is the largest page size accepted as-is.
	MaxPageSize = 100

	// DefaultTop replaces any out-of-range popular list length.
	DefaultTop = 10
	// MaxTop is the largest popular list length accepted as-is.
	MaxTop = 50
)

// Params is a normalized page request.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Offset   int `json:"-"`
}

// Normalize clamps page to at least 1 and resets a page size outside
// [1, MaxPageSize] to DefaultPageSize. Out-of-range values are corrected,
// never rejected.
func Normalize(page, pageSize int) Params {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return Params{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// NormalizeTop resets a popular list length outside [1, MaxTop] to DefaultTop.
func NormalizeTop(top int) int {
	if top < 1 || top > MaxTop {
		return DefaultTop
	}
	return top
}

// Result wraps one page of items with the total hit count.
type Result[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

// NewResult builds a Result. A nil items slice is returned as empty.
func NewResult[T any](items []T, total int64, p Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	var pages int
	if p.PageSize > 0 {
		pages = int(total / int64(p.PageSize))
		if total%int64(p.PageSize) > 0 {
			pages++
		}
	}
	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
		HasNext:    p.Page < pages,
	}
}
