package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Limit  int
	Offset int
}

func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePagination reads limit/offset (or page as an offset shorthand,
// 1-based) and clamps limit to [1, maxLimit].
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	p := Pagination{Limit: defaultLimit}
	if v, ok := queryInt(r, "limit"); ok && v > 0 {
		p.Limit = v
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if v, ok := queryInt(r, "offset"); ok && v >= 0 {
		p.Offset = v
	} else if page, ok := queryInt(r, "page"); ok && page > 1 {
		p.Offset = (page - 1) * p.Limit
	}
	return p
}
