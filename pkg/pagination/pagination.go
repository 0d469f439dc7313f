// Package pagination windows paginated queries over the contiguous,
// monotonically assigned market item id space. Page boundaries depend only
// on (page, pageSize), so they stay stable as filters change; a page may
// legitimately hold fewer matches than pageSize.
package pagination

import "errors"

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 25
	// MaxPageSize caps how many ids any page can cover.
	MaxPageSize = 100
)

var (
	ErrPageOutOfRange     = errors.New("page must be >= 1")
	ErrPageSizeOutOfRange = errors.New("page size must be between 1 and 100")
)

// Params holds pagination inputs from controllers or services.
type Params struct {
	Page     int64
	PageSize int64
}

// Window is the inclusive id range [FirstID, LastID] a page covers.
type Window struct {
	FirstID int64
	LastID  int64
}

// WindowFor validates the params and computes the id window for the page.
// Item ids are 1-based, so page 1 with size n covers ids [1, n].
func WindowFor(params Params) (Window, error) {
	if params.Page < 1 {
		return Window{}, ErrPageOutOfRange
	}
	if params.PageSize < 1 || params.PageSize > MaxPageSize {
		return Window{}, ErrPageSizeOutOfRange
	}
	first := (params.Page-1)*params.PageSize + 1
	return Window{
		FirstID: first,
		LastID:  first + params.PageSize - 1,
	}, nil
}
