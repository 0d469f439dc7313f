package pagination

import (
	"errors"
	"testing"
)

func TestWindowFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		page, size  int64
		first, last int64
	}{
		{name: "first page", page: 1, size: 25, first: 1, last: 25},
		{name: "second page", page: 2, size: 25, first: 26, last: 50},
		{name: "single row pages", page: 7, size: 1, first: 7, last: 7},
		{name: "max size", page: 3, size: 100, first: 201, last: 300},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			window, err := WindowFor(Params{Page: tc.page, PageSize: tc.size})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if window.FirstID != tc.first || window.LastID != tc.last {
				t.Fatalf("window = [%d, %d], want [%d, %d]", window.FirstID, window.LastID, tc.first, tc.last)
			}
		})
	}
}

func TestWindowForPartitionsIDSpace(t *testing.T) {
	t.Parallel()

	// Consecutive pages must cover the id space with no gaps or overlaps.
	const size = 10
	next := int64(1)
	for page := int64(1); page <= 20; page++ {
		window, err := WindowFor(Params{Page: page, PageSize: size})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if window.FirstID != next {
			t.Fatalf("page %d starts at %d, want %d", page, window.FirstID, next)
		}
		next = window.LastID + 1
	}
}

func TestWindowForRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := WindowFor(Params{Page: 0, PageSize: 10}); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, err := WindowFor(Params{Page: 1, PageSize: 0}); !errors.Is(err, ErrPageSizeOutOfRange) {
		t.Fatalf("expected ErrPageSizeOutOfRange, got %v", err)
	}
	if _, err := WindowFor(Params{Page: 1, PageSize: MaxPageSize + 1}); !errors.Is(err, ErrPageSizeOutOfRange) {
		t.Fatalf("expected ErrPageSizeOutOfRange, got %v", err)
	}
	if _, err := WindowFor(Params{Page: 1, PageSize: -5}); !errors.Is(err, ErrPageSizeOutOfRange) {
		t.Fatalf("expected ErrPageSizeOutOfRange, got %v", err)
	}
}
