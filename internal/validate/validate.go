// Package validate holds the per-operation input validators the flow
// compiler calls before encoding each ledger call. Each validator is total
// over well-formed typed input and returns a typed error on invalid input;
// the compiler propagates these unchanged inside its own error envelope.
package validate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/text/unicode/norm"

	"github.com/dripforge/dripforge/internal/streamcfg"
)

// Error reports an invalid field in a validator's input.
type Error struct {
	Code    ErrorCode
	Field   string
	Message string
}

// ErrorCode categorizes validation failures.
type ErrorCode string

const (
	// ErrCodeBadAddress indicates a malformed hex address.
	ErrCodeBadAddress ErrorCode = "BAD_ADDRESS"

	// ErrCodeBadReceivers indicates an invalid or mis-ordered receiver list.
	ErrCodeBadReceivers ErrorCode = "BAD_RECEIVERS"

	// ErrCodeBadAmount indicates an out-of-range or missing amount.
	ErrCodeBadAmount ErrorCode = "BAD_AMOUNT"

	// ErrCodeBadMetadata indicates an invalid metadata entry.
	ErrCodeBadMetadata ErrorCode = "BAD_METADATA"

	// ErrCodeBadHistory indicates an invalid squeeze history claim.
	ErrCodeBadHistory ErrorCode = "BAD_HISTORY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
}

// AsError extracts a validation *Error from a (possibly wrapped) error.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// maxBalanceDelta bounds the int128 balanceDelta argument: |delta| < 2^127.
var maxBalanceDelta = new(big.Int).Lsh(big.NewInt(1), 127)

// SetStreamInput is the unit validated before a setDrips call: the token,
// both receiver lists, the transfer address and the balance delta belong
// together because the ledger checks them against each other.
type SetStreamInput struct {
	TokenAddress     string
	CurrentReceivers []streamcfg.Receiver
	NewReceivers     []streamcfg.Receiver
	BalanceDelta     *big.Int
	TransferTo       string
}

// SetStream validates a stream-update input as one unit.
func SetStream(in SetStreamInput) error {
	if err := address("tokenAddress", in.TokenAddress); err != nil {
		return err
	}
	if err := address("transferTo", in.TransferTo); err != nil {
		return err
	}
	if err := receivers("currentReceivers", in.CurrentReceivers); err != nil {
		return err
	}
	if err := receivers("newReceivers", in.NewReceivers); err != nil {
		return err
	}
	if in.BalanceDelta == nil {
		return &Error{Code: ErrCodeBadAmount, Field: "balanceDelta", Message: "must not be nil"}
	}
	if in.BalanceDelta.CmpAbs(maxBalanceDelta) >= 0 {
		return &Error{Code: ErrCodeBadAmount, Field: "balanceDelta", Message: "exceeds int128 range"}
	}
	return nil
}

// MetadataEntry is one user metadata pair attached to a stream update.
type MetadataEntry struct {
	Key   string
	Value string
}

// Metadata validates the metadata entries of a stream update. Keys are
// NFC-normalized before length checking so visually identical keys encode
// to the same on-chain bytes32 regardless of the caller's Unicode form.
func Metadata(entries []MetadataEntry) error {
	for i, e := range entries {
		key := norm.NFC.String(e.Key)
		if key == "" {
			return &Error{
				Code:    ErrCodeBadMetadata,
				Field:   fmt.Sprintf("metadata[%d].key", i),
				Message: "must not be empty",
			}
		}
		if len(key) > 32 {
			return &Error{
				Code:    ErrCodeBadMetadata,
				Field:   fmt.Sprintf("metadata[%d].key", i),
				Message: "exceeds 32 bytes",
			}
		}
	}
	return nil
}

// MetadataKey returns the bytes32 form of a metadata key: NFC-normalized
// UTF-8, right-padded with zeros. Callers must have validated length first.
func MetadataKey(key string) [32]byte {
	var out [32]byte
	copy(out[:], norm.NFC.String(key))
	return out
}

// HistoryEntry is one claimed step of a sender's configuration history.
// Exactly one of DripsHash or Receivers is meaningful: hashed steps are
// skipped during squeezing, listed steps are squeezed.
type HistoryEntry struct {
	DripsHash  [32]byte
	Receivers  []streamcfg.Receiver
	UpdateTime uint32
	MaxEnd     uint32
}

// SqueezeInput is one squeeze request: the sender whose current cycle is
// claimed, the on-chain history hash preceding the claimed steps, and the
// steps themselves.
type SqueezeInput struct {
	SenderID    *big.Int
	HistoryHash [32]byte
	History     []HistoryEntry
}

// Squeeze validates one squeeze request independently of any others.
func Squeeze(in SqueezeInput) error {
	if in.SenderID == nil || in.SenderID.Sign() < 0 {
		return &Error{Code: ErrCodeBadAmount, Field: "senderId", Message: "must be a non-negative id"}
	}
	if len(in.History) == 0 {
		return &Error{Code: ErrCodeBadHistory, Field: "dripsHistory", Message: "must not be empty"}
	}
	for i, h := range in.History {
		hashed := h.DripsHash != [32]byte{}
		if hashed && len(h.Receivers) > 0 {
			return &Error{
				Code:    ErrCodeBadHistory,
				Field:   fmt.Sprintf("dripsHistory[%d]", i),
				Message: "carries both a hash and a receiver list",
			}
		}
		if err := receivers(fmt.Sprintf("dripsHistory[%d].receivers", i), h.Receivers); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveInput parameterizes a receiveDrips call.
type ReceiveInput struct {
	MaxCycles uint32
}

// Receive validates a receive step.
func Receive(in ReceiveInput) error {
	if in.MaxCycles == 0 {
		return &Error{Code: ErrCodeBadAmount, Field: "maxCycles", Message: "must be positive"}
	}
	return nil
}

// SplitInput parameterizes a split call.
type SplitInput struct {
	Receivers []streamcfg.SplitsReceiver
}

// Split validates a split step: canonical order, positive weights, and a
// total weight within the ledger's denominator.
func Split(in SplitInput) error {
	if err := streamcfg.ValidateSplitsOrder(in.Receivers); err != nil {
		return &Error{Code: ErrCodeBadReceivers, Field: "splitsReceivers", Message: err.Error()}
	}
	var total uint64
	for i, r := range in.Receivers {
		if r.Weight == 0 {
			return &Error{
				Code:    ErrCodeBadReceivers,
				Field:   fmt.Sprintf("splitsReceivers[%d].weight", i),
				Message: "must be positive",
			}
		}
		total += uint64(r.Weight)
	}
	if total > streamcfg.TotalSplitsWeight {
		return &Error{
			Code:    ErrCodeBadReceivers,
			Field:   "splitsReceivers",
			Message: fmt.Sprintf("total weight %d exceeds %d", total, streamcfg.TotalSplitsWeight),
		}
	}
	return nil
}

// CollectInput parameterizes a collect call.
type CollectInput struct {
	TransferTo string
}

// Collect validates the final collect step.
func Collect(in CollectInput) error {
	return address("transferTo", in.TransferTo)
}

func address(field, value string) error {
	if !common.IsHexAddress(value) {
		return &Error{Code: ErrCodeBadAddress, Field: field, Message: fmt.Sprintf("%q is not a hex address", value)}
	}
	return nil
}

func receivers(field string, rs []streamcfg.Receiver) error {
	if err := streamcfg.ValidateReceiverOrder(rs); err != nil {
		return &Error{Code: ErrCodeBadReceivers, Field: field, Message: err.Error()}
	}
	return nil
}
