// Package fees computes the flat platform commission charged on each buy.
package fees

import "github.com/shopspring/decimal"

// RateDenominator is the fixed denominator fee rates are expressed over,
// giving fractional-percent precision with integer numerators (e.g. a 2.5%
// rate is numerator 250_000_000).
const RateDenominator int64 = 10_000_000_000

var rateDenominator = decimal.NewFromInt(RateDenominator)

// Fee returns floor(quantity * unitPriceCents * rateNumerator / RateDenominator).
//
// The triple product is carried in arbitrary-precision decimals so it cannot
// overflow before the division. Rounding is floor-toward-zero only. The
// function is pure: identical inputs always yield identical output.
func Fee(quantity, unitPriceCents, rateNumerator int64) int64 {
	if quantity <= 0 || unitPriceCents <= 0 || rateNumerator <= 0 {
		return 0
	}
	product := decimal.NewFromInt(quantity).
		Mul(decimal.NewFromInt(unitPriceCents)).
		Mul(decimal.NewFromInt(rateNumerator))
	quotient, _ := product.QuoRem(rateDenominator, 0)
	return quotient.IntPart()
}
