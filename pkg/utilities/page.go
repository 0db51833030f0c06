package utilities

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultSkip  = 0
	DefaultLimit = 100
)

var ErrBadPage = errors.New("skip and limit must be non-negative integers")

// ParsePage reads ?skip=&limit= with defaults 0 and 100.
func ParsePage(r *http.Request) (skip, limit int, err error) {
	skip, err = intParam(r, "skip", DefaultSkip)
	if err != nil {
		return 0, 0, err
	}
	limit, err = intParam(r, "limit", DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, ErrBadPage
	}
	return n, nil
}
