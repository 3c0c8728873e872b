package models

import "github.com/shopspring/decimal"

// Price is a fixed-point decimal. Every money value and ratio in this module
// is a Price, never a float64 — binary floats drift across enough fills to
// make position bookkeeping wrong in ways that are hard to notice.
type Price = decimal.Decimal

// ZeroPrice is the additive identity, handy for accumulators.
var ZeroPrice = decimal.Zero

// PriceFromFloat builds a Price from a float64. Reserved for boundaries that
// hand us floats (wire formats, third-party SDKs) — never use it to do
// arithmetic on a Price you already have.
func PriceFromFloat(f float64) Price {
	return decimal.NewFromFloat(f)
}
