package models

// Page is one slice of an ordered collection plus what a caller needs to
// render navigation without querying again.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewPage builds the page metadata for items taken at the given position.
func NewPage[T any](items []T, page, perPage, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}

	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}

	return &Page[T]{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// NextNum returns the following page number, or zero when there is none.
func (p *Page[T]) NextNum() int {
	if !p.HasNext {
		return 0
	}
	return p.Page + 1
}

// PrevNum returns the preceding page number, or zero when there is none.
func (p *Page[T]) PrevNum() int {
	if !p.HasPrev {
		return 0
	}
	return p.Page - 1
}

// Offset returns the number of items that precede page.
func Offset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
