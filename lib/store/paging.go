package store

// Page is one page of a paginated result
type Page[T any] struct {
	Data          []T    `codec:"data" json:"data"`
	Page          uint64 `codec:"page" json:"page"`
	Limit         uint64 `codec:"limit" json:"limit"`
	Total         uint64 `codec:"total" json:"total"`
	NumberOfPages uint64 `codec:"number_of_pages" json:"number_of_pages"`
	HasMore       bool   `codec:"has_more" json:"has_more"`
}

// Paginate returns page (zero based) of items with limit items per page.
// A limit of 0 puts all items on page 0. Pages past the end are empty but
// report the correct totals.
func Paginate[T any](items []T, limit, page uint64) Page[T] {
	total := uint64(len(items))

	if limit == 0 {
		p := Page[T]{Page: page, Total: total, NumberOfPages: 1, Data: []T{}}
		if page == 0 {
			p.Data = items
		}
		p.Limit = total
		return p
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	p := Page[T]{
		Page:          page,
		Limit:         limit,
		Total:         total,
		NumberOfPages: pages,
		HasMore:       page+1 < pages,
		Data:          []T{},
	}

	// page*limit may overflow for absurd page numbers
	if page >= pages {
		return p
	}

	// page < pages, so start < total and start+limit is only formed when it fits
	start := page * limit
	end := total
	if limit < total-start {
		end = start + limit
	}
	p.Data = items[start:end]
	return p
}
