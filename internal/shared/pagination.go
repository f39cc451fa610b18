package shared

import (
	"net/http"
	"strconv"
)

// Defaults for take/skip pagination.
const (
	DefaultTake = 25
	MaxTake     = 500
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Take  int `json:"take"`
	Skip  int `json:"skip"`
	Count int `json:"count"`
}

// ParsePagination reads take/skip query parameters, clamping to limits.
func ParsePagination(r *http.Request) Pagination {
	take := DefaultTake
	if raw := r.URL.Query().Get("take"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			take = v
		}
	}
	if take > MaxTake {
		take = MaxTake
	}
	skip := 0
	if raw := r.URL.Query().Get("skip"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			skip = v
		}
	}
	return Pagination{Take: take, Skip: skip}
}
