package models

import "fmt"

// Amount is a money value in minor units of the settlement currency
// (kopecks for RUB). All settlement arithmetic is integer arithmetic so
// that shares always sum back to the exact total.
type Amount int64

// AmountFromMajor converts whole currency units (e.g. rubles) to an Amount.
func AmountFromMajor(v int64) Amount {
	return Amount(v * 100)
}

// String renders the amount with exactly two decimal places, the format
// the gateway API expects.
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", int64(a)/100, int64(a)%100)
}

// SplitFee divides total between the platform and the seller.
// feeBP is the platform fee in basis points (1000 == 10%). The platform
// share is rounded half-up to the minor unit; the seller receives the
// exact remainder, so platform+seller == total always holds.
func SplitFee(total Amount, feeBP int64) (platform, seller Amount) {
	platform = Amount((int64(total)*feeBP + 5000) / 10000)
	seller = total - platform
	return platform, seller
}

// SplitHalf divides total for a split-verdict dispute: the client refund
// is half the total floored to the minor unit, the seller payout is the
// exact remainder, so refund+payout == total always holds.
func SplitHalf(total Amount) (refund, payout Amount) {
	refund = total / 2
	payout = total - refund
	return refund, payout
}
