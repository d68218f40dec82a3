package flows

import (
	"math/big"

	"github.com/dripforge/dripforge/internal/streamcfg"
	"github.com/dripforge/dripforge/internal/validate"
)

// StreamUpdatePayload carries a caller's intent to start or modify a
// stream. SignerAddress is the connected execution context; a payload
// without one cannot be compiled.
type StreamUpdatePayload struct {
	TokenAddress  string
	SignerAddress string
	UserID        *big.Int

	// CurrentReceivers is the list committed on chain; the ledger verifies
	// its hash before accepting NewReceivers. Both must already be in
	// canonical order.
	CurrentReceivers []streamcfg.Receiver
	NewReceivers     []streamcfg.Receiver

	// BalanceDelta tops up (positive) or withdraws (negative) stream balance.
	BalanceDelta *big.Int

	// TransferTo receives any withdrawn balance.
	TransferTo string

	// Metadata is emitted alongside the update so the stream change and its
	// audit trail land in the same batch.
	Metadata []validate.MetadataEntry
}

// SqueezeRequest claims funds streamed in the current, not-yet-finalized
// cycle from one sender.
type SqueezeRequest struct {
	SenderID    *big.Int
	HistoryHash [32]byte
	History     []validate.HistoryEntry
}

// CollectPayload carries a caller's intent to collect accumulated funds.
type CollectPayload struct {
	TokenAddress  string
	SignerAddress string
	UserID        *big.Int

	// Squeezes are compiled first, in the order supplied.
	Squeezes []SqueezeRequest

	// MaxCycles caps the receiveDrips step.
	MaxCycles uint32

	// SplitsReceivers is the committed splits list for the split step.
	SplitsReceivers []streamcfg.SplitsReceiver

	// TransferTo receives the collected funds.
	TransferTo string
}
