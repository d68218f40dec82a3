package streamcfg

import (
	"fmt"
	"math/big"
)

// Bit widths of the packed stream configuration, most significant field first:
//
//	| dripId (32) | amountPerSec (160) | start (32) | duration (32) |
//
// The layout is the ledger contract's own packing. The packed integer is the
// input to the receivers hash the ledger independently recomputes, so the
// field boundaries are a fixed external contract and must never change.
const (
	dripIDBits       = 32
	amountPerSecBits = 160
	startBits        = 32
	durationBits     = 32
	packedBits       = dripIDBits + amountPerSecBits + startBits + durationBits
)

// maxAmountPerSec is 2^160 - 1, the largest rate the layout can carry.
var maxAmountPerSec = new(big.Int).Sub(
	new(big.Int).Lsh(big.NewInt(1), amountPerSecBits), big.NewInt(1))

// StreamConfig is the semantic form of a receiver's streaming parameters.
//
// AmountPerSec is the rate in the asset's smallest unit per second and may
// exceed 64 bits (the layout allots it 160). Start of 0 means "now";
// Duration of 0 means "until balance runs out".
type StreamConfig struct {
	DripID       uint32
	AmountPerSec *big.Int
	Start        uint32
	Duration     uint32
}

// Pack encodes the configuration into its canonical 256-bit integer form.
//
// Out-of-range policy: REJECT, never truncate. The ledger recomputes the
// same packing independently, so a silently truncated field would produce an
// authorization hash that verifies locally but not on chain. DripID, Start
// and Duration are uint32 and fit their 32-bit slots by construction; only
// AmountPerSec needs a range check.
//
// Pack is deterministic and side-effect free; safe to memoize.
func (c StreamConfig) Pack() (*big.Int, error) {
	if c.AmountPerSec == nil {
		return nil, newOutOfRange("amountPerSec", "rate must not be nil")
	}
	if c.AmountPerSec.Sign() < 0 {
		return nil, newOutOfRange("amountPerSec",
			fmt.Sprintf("rate %s is negative", c.AmountPerSec))
	}
	if c.AmountPerSec.Cmp(maxAmountPerSec) > 0 {
		return nil, newOutOfRange("amountPerSec",
			fmt.Sprintf("rate %s exceeds %d bits", c.AmountPerSec, amountPerSecBits))
	}

	packed := new(big.Int).SetUint64(uint64(c.DripID))
	packed.Lsh(packed, amountPerSecBits)
	packed.Or(packed, c.AmountPerSec)
	packed.Lsh(packed, startBits)
	packed.Or(packed, new(big.Int).SetUint64(uint64(c.Start)))
	packed.Lsh(packed, durationBits)
	packed.Or(packed, new(big.Int).SetUint64(uint64(c.Duration)))
	return packed, nil
}

// Unpack decodes a canonical 256-bit integer back into its semantic form.
// It is the exact inverse of Pack: Unpack(Pack(c)) == c for every c whose
// fields are in range.
//
// Fails with a malformed-encoding error if the value is negative or wider
// than 256 bits, since no valid configuration packs to such a value.
func Unpack(packed *big.Int) (StreamConfig, error) {
	if packed == nil {
		return StreamConfig{}, newMalformed("packed value must not be nil")
	}
	if packed.Sign() < 0 {
		return StreamConfig{}, newMalformed(
			fmt.Sprintf("packed value %s is negative", packed))
	}
	if packed.BitLen() > packedBits {
		return StreamConfig{}, newMalformed(
			fmt.Sprintf("packed value has %d bits, layout is %d", packed.BitLen(), packedBits))
	}

	mask32 := new(big.Int).SetUint64(1<<32 - 1)
	rest := new(big.Int).Set(packed)

	duration := new(big.Int).And(rest, mask32).Uint64()
	rest.Rsh(rest, durationBits)
	start := new(big.Int).And(rest, mask32).Uint64()
	rest.Rsh(rest, startBits)
	amountPerSec := new(big.Int).And(rest, maxAmountPerSec)
	rest.Rsh(rest, amountPerSecBits)
	dripID := rest.Uint64()

	return StreamConfig{
		DripID:       uint32(dripID),
		AmountPerSec: amountPerSec,
		Start:        uint32(start),
		Duration:     uint32(duration),
	}, nil
}

// String renders the configuration for logs and CLI output.
func (c StreamConfig) String() string {
	return fmt.Sprintf("drip=%d rate=%s start=%d duration=%d",
		c.DripID, c.AmountPerSec, c.Start, c.Duration)
}
