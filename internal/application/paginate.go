package application

// DefaultPageSize is the credential table's fixed page size.
const DefaultPageSize = 10

// Paginate slices an ordered collection into the requested fixed-size page.
// totalPages is at least 1 even for an empty collection. The page number is
// clamped into [1, totalPages] before slicing, so an out-of-range request
// returns the nearest valid page rather than an empty slice; only an empty
// collection yields an empty page. The clamped page is returned alongside
// the slice so callers can reflect it back to the UI.
func Paginate[T any](items []T, page, pageSize int) (slice []T, clampedPage, totalPages int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages = (len(items) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, page, totalPages
	}

	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], page, totalPages
}
