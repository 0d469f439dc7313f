package fees

import (
	"math/big"
	"testing"
)

func TestFeeFloor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		qty, price int64
		numerator  int64
		want       int64
	}{
		{name: "one percent", qty: 4, price: 100, numerator: 100_000_000, want: 4},
		{name: "floors toward zero", qty: 3, price: 333, numerator: 100_000_000, want: 9},
		{name: "sub-unit fee floors to zero", qty: 1, price: 1, numerator: 100_000_000, want: 0},
		{name: "full rate returns full total", qty: 7, price: 50, numerator: RateDenominator, want: 350},
		{name: "zero quantity", qty: 0, price: 100, numerator: 100_000_000, want: 0},
		{name: "zero rate", qty: 10, price: 100, numerator: 0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Fee(tc.qty, tc.price, tc.numerator); got != tc.want {
				t.Fatalf("Fee(%d, %d, %d) = %d, want %d", tc.qty, tc.price, tc.numerator, got, tc.want)
			}
		})
	}
}

func TestFeeWideIntermediate(t *testing.T) {
	t.Parallel()

	// quantity * price * numerator far exceeds int64; the result must still
	// match exact big-integer arithmetic.
	qty := int64(9_000_000_000)
	price := int64(5_000_000)
	numerator := int64(250_000_000) // 2.5%

	want := new(big.Int).Mul(big.NewInt(qty), big.NewInt(price))
	want.Mul(want, big.NewInt(numerator))
	want.Quo(want, big.NewInt(RateDenominator))

	if got := Fee(qty, price, numerator); got != want.Int64() {
		t.Fatalf("Fee = %d, want %d", got, want.Int64())
	}
}

func TestFeeNeverExceedsTotal(t *testing.T) {
	t.Parallel()

	for _, numerator := range []int64{1, 100_000_000, 250_000_000, RateDenominator - 1, RateDenominator} {
		for _, qty := range []int64{1, 3, 10, 999} {
			for _, price := range []int64{1, 99, 100_000} {
				fee := Fee(qty, price, numerator)
				if total := qty * price; fee > total {
					t.Fatalf("fee %d exceeds total %d (qty=%d price=%d numerator=%d)", fee, total, qty, price, numerator)
				}
			}
		}
	}
}

func TestFeeDeterministic(t *testing.T) {
	t.Parallel()

	first := Fee(123, 4567, 250_000_000)
	for i := 0; i < 100; i++ {
		if got := Fee(123, 4567, 250_000_000); got != first {
			t.Fatalf("Fee not deterministic: %d != %d", got, first)
		}
	}
}
