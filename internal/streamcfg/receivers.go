package streamcfg

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Receiver is one entry of a stream receiver list: a numeric account id
// (uint256 on the ledger, hence big.Int) and a packed configuration.
type Receiver struct {
	UserID *big.Int
	Config *big.Int
}

// SplitsReceiver is one entry of a splits receiver list. Weight is the
// receiver's share of TotalSplitsWeight.
type SplitsReceiver struct {
	UserID *big.Int
	Weight uint32
}

// TotalSplitsWeight is the ledger's denominator for split shares.
const TotalSplitsWeight = 1_000_000

// abiReceiver is the tuple shape the ledger hashes receiver lists over.
type abiReceiver struct {
	UserId *big.Int
	Config *big.Int
}

// receiversHashArgs is the ABI argument list for the receivers hash
// preimage: a single (uint256 userId, uint256 config)[] parameter.
var receiversHashArgs abi.Arguments

func init() {
	receiversTy, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "userId", Type: "uint256"},
		{Name: "config", Type: "uint256"},
	})
	if err != nil {
		panic(fmt.Sprintf("streamcfg: build receivers ABI type: %v", err))
	}
	receiversHashArgs = abi.Arguments{{Type: receiversTy}}
}

// ValidateReceiverOrder checks that the list is in canonical order:
// strictly ascending by (userId, config). Equal neighbors are duplicates and
// also rejected. It never reorders: a silently re-sorted list would hash
// differently from the list the caller committed on chain.
func ValidateReceiverOrder(rs []Receiver) error {
	for i, r := range rs {
		if r.UserID == nil || r.Config == nil {
			return &CodecError{
				Code:    ErrCodeUnsortedReceivers,
				Field:   fmt.Sprintf("receivers[%d]", i),
				Message: "receiver has nil userId or config",
			}
		}
		if i == 0 {
			continue
		}
		prev := rs[i-1]
		cmp := prev.UserID.Cmp(r.UserID)
		if cmp == 0 {
			cmp = prev.Config.Cmp(r.Config)
		}
		if cmp >= 0 {
			return &CodecError{
				Code:    ErrCodeUnsortedReceivers,
				Field:   fmt.Sprintf("receivers[%d]", i),
				Message: "list must be strictly ascending by (userId, config)",
			}
		}
	}
	return nil
}

// ValidateSplitsOrder checks a splits receiver list for canonical order:
// strictly ascending by userId.
func ValidateSplitsOrder(rs []SplitsReceiver) error {
	for i, r := range rs {
		if r.UserID == nil {
			return &CodecError{
				Code:    ErrCodeUnsortedReceivers,
				Field:   fmt.Sprintf("receivers[%d]", i),
				Message: "splits receiver has nil userId",
			}
		}
		if i > 0 && rs[i-1].UserID.Cmp(r.UserID) >= 0 {
			return &CodecError{
				Code:    ErrCodeUnsortedReceivers,
				Field:   fmt.Sprintf("receivers[%d]", i),
				Message: "list must be strictly ascending by userId",
			}
		}
	}
	return nil
}

// FormatReceivers converts a receiver list into the positional
// (userId, config) pairs ledger calls expect, preserving caller order.
// It validates order first and fails loudly rather than re-sorting.
// The returned pairs are copies; mutating them leaves the input untouched.
func FormatReceivers(rs []Receiver) ([][2]*big.Int, error) {
	if err := ValidateReceiverOrder(rs); err != nil {
		return nil, err
	}
	out := make([][2]*big.Int, len(rs))
	for i, r := range rs {
		out[i] = [2]*big.Int{
			new(big.Int).Set(r.UserID),
			new(big.Int).Set(r.Config),
		}
	}
	return out, nil
}

// ReceiversHash computes the content address of a receiver list:
// Keccak-256 over the ABI encoding of the canonical (userId, config)[]
// tuple list. This is the same hash the ledger recomputes to verify a
// caller's claimed list against a previously committed one, so the list
// must already be in canonical order.
func ReceiversHash(rs []Receiver) ([32]byte, error) {
	if err := ValidateReceiverOrder(rs); err != nil {
		return [32]byte{}, err
	}
	encoded := make([]abiReceiver, len(rs))
	for i, r := range rs {
		encoded[i] = abiReceiver{UserId: r.UserID, Config: r.Config}
	}
	packed, err := receiversHashArgs.Pack(encoded)
	if err != nil {
		return [32]byte{}, fmt.Errorf("abi-encode receivers: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}
