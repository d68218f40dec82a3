package streamcfg

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PerSecond converts a human-entered amount per funding cycle into the
// smallest-unit-per-second rate a StreamConfig carries.
//
// amountPerCycle is in whole asset units (e.g. "1.5" tokens), decimals is
// the asset's smallest-unit exponent, cycleSecs the cycle length. The
// division truncates toward zero: a rate that does not divide evenly streams
// marginally less than the requested cycle amount, never more.
func PerSecond(amountPerCycle decimal.Decimal, decimals int32, cycleSecs uint64) (*big.Int, error) {
	if cycleSecs == 0 {
		return nil, fmt.Errorf("cycle length must be positive")
	}
	if amountPerCycle.IsNegative() {
		return nil, newOutOfRange("amountPerSec",
			fmt.Sprintf("amount %s is negative", amountPerCycle))
	}

	// Shift into smallest units, then truncate any sub-unit remainder.
	units := amountPerCycle.Shift(decimals).BigInt()
	rate := units.Quo(units, new(big.Int).SetUint64(cycleSecs))

	if rate.Cmp(maxAmountPerSec) > 0 {
		return nil, newOutOfRange("amountPerSec",
			fmt.Sprintf("rate %s exceeds %d bits", rate, amountPerSecBits))
	}
	return rate, nil
}
