package handler

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// normalizePagination applies the same defaults the application layer uses so
// pagination meta matches the rows actually returned
func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
