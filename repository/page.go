package repository

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var sortableUserColumns = map[string]string{
	"id":         "id",
	"username":   "username",
	"email":      "email",
	"createdAt":  "created_at",
	"created_at": "created_at",
}

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
	SortBy string
	Desc   bool
}

// Normalize clamps the page to sane bounds and resolves SortBy to a column.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	col, ok := sortableUserColumns[p.SortBy]
	if !ok {
		col = "id"
	}
	p.SortBy = col
	return p
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// Result is a page of items with totals.
type Result[T any] struct {
	Items      []T `json:"content"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalElements"`
	TotalPages int `json:"totalPages"`
}

// NewResult assembles a page result from items and the total count.
func NewResult[T any](items []T, page Page, total int) Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if page.Size > 0 {
		pages = (total + page.Size - 1) / page.Size
	}
	return Result[T]{
		Items:      items,
		Page:       page.Number,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}
