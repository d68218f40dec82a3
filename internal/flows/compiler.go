// Package flows compiles user intent into ordered, all-or-nothing batches
// of ledger calls.
//
// Two presets exist: the stream-update flow (setDrips + emitUserMetadata)
// and the collect flow (squeezes, receive, split, collect). A compile
// either returns the complete ordered batch or fails before returning
// anything; calls constructed for earlier steps have no side effects beyond
// in-memory construction, so discarding them on failure is safe.
package flows

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dripforge/dripforge/internal/streamcfg"
	"github.com/dripforge/dripforge/internal/txfactory"
	"github.com/dripforge/dripforge/internal/validate"
)

// CallEncoder builds one opaque ledger call per operation. Implemented by
// txfactory.Factory; faked in tests.
type CallEncoder interface {
	Build(ctx context.Context, op txfactory.Op, args ...any) (txfactory.CallRequest, error)
}

// Validator is the family of per-operation validators the compiler consults
// immediately before appending each step. Each method either returns nil or
// a typed error, which the compiler propagates unchanged inside a
// VALIDATION_FAILED envelope.
type Validator interface {
	SetStream(in validate.SetStreamInput) error
	Metadata(entries []validate.MetadataEntry) error
	Squeeze(in validate.SqueezeInput) error
	Receive(in validate.ReceiveInput) error
	Split(in validate.SplitInput) error
	Collect(in validate.CollectInput) error
}

// Suite is the production Validator backed by package validate.
type Suite struct{}

func (Suite) SetStream(in validate.SetStreamInput) error      { return validate.SetStream(in) }
func (Suite) Metadata(e []validate.MetadataEntry) error       { return validate.Metadata(e) }
func (Suite) Squeeze(in validate.SqueezeInput) error          { return validate.Squeeze(in) }
func (Suite) Receive(in validate.ReceiveInput) error          { return validate.Receive(in) }
func (Suite) Split(in validate.SplitInput) error              { return validate.Split(in) }
func (Suite) Collect(in validate.CollectInput) error          { return validate.Collect(in) }

// Batch is an ordered sequence of ledger calls intended to be submitted
// together. Ordering is an observable contract with the ledger; atomicity
// of actual submission is the batch executor's concern, not the compiler's.
type Batch struct {
	// Token is a time-sortable identifier for tracing.
	Token string

	// Calls are submitted in slice order.
	Calls []txfactory.CallRequest
}

// Compiler builds preset flows. It holds no mutable state across calls:
// every compile produces fresh, independent values, so concurrent
// independent invocations are safe by construction.
type Compiler struct {
	enc    CallEncoder
	val    Validator
	tokens TokenGenerator
}

// NewCompiler creates a flow compiler. A nil validator defaults to the
// production Suite; a nil token generator defaults to UUIDv7 tokens.
func NewCompiler(enc CallEncoder, val Validator, tokens TokenGenerator) *Compiler {
	if val == nil {
		val = Suite{}
	}
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Compiler{enc: enc, val: val, tokens: tokens}
}

// CompileStreamUpdate compiles a stream update into exactly two calls, in
// fixed order: setDrips then emitUserMetadata. The two target the same
// driver and are meant to be submitted together so a stream change and its
// audit metadata are indivisible from the caller's perspective.
func (c *Compiler) CompileStreamUpdate(ctx context.Context, p *StreamUpdatePayload) (*Batch, error) {
	if p == nil {
		return nil, newMissingArgument("payload")
	}
	if p.TokenAddress == "" {
		return nil, newInvalidArgument("tokenAddress", "must not be empty")
	}
	if p.SignerAddress == "" {
		return nil, newInvalidArgument("signerAddress", "no connected execution context")
	}
	if p.UserID == nil {
		return nil, newInvalidArgument("userId", "must not be nil")
	}

	// The token, both receiver lists, the transfer address and the balance
	// delta are validated as one unit; metadata separately.
	if err := c.val.SetStream(validate.SetStreamInput{
		TokenAddress:     p.TokenAddress,
		CurrentReceivers: p.CurrentReceivers,
		NewReceivers:     p.NewReceivers,
		BalanceDelta:     p.BalanceDelta,
		TransferTo:       p.TransferTo,
	}); err != nil {
		return nil, wrapValidation("stream update", err)
	}
	if err := c.val.Metadata(p.Metadata); err != nil {
		return nil, wrapValidation("metadata", err)
	}

	curr, err := formatReceivers(p.CurrentReceivers)
	if err != nil {
		return nil, err
	}
	next, err := formatReceivers(p.NewReceivers)
	if err != nil {
		return nil, err
	}

	setCall, err := c.enc.Build(ctx, txfactory.OpSetDrips,
		common.HexToAddress(p.TokenAddress),
		curr,
		p.BalanceDelta,
		next,
		common.HexToAddress(p.TransferTo),
	)
	if err != nil {
		return nil, err
	}

	metadata := make([]txfactory.MetadataEntry, len(p.Metadata))
	for i, e := range p.Metadata {
		metadata[i] = txfactory.MetadataEntry{
			Key:   validate.MetadataKey(e.Key),
			Value: []byte(e.Value),
		}
	}
	emitCall, err := c.enc.Build(ctx, txfactory.OpEmitUserMetadata, metadata)
	if err != nil {
		return nil, err
	}

	return &Batch{
		Token: c.tokens.Generate(),
		Calls: []txfactory.CallRequest{setCall, emitCall},
	}, nil
}

// CompileCollect compiles a collect flow:
//
//  1. one squeezeDrips per squeeze request, in supplied order;
//  2. receiveDrips unless skipReceive;
//  3. split unless skipSplit;
//  4. collect, always, always last.
//
// Each step is validated immediately before it is appended, and each call's
// construction completes before the next begins. The squeeze loop is
// strictly sequential: squeezing claims the current cycle and must land
// before receiving finalized cycles, so dispatching squeeze construction
// concurrently would break the funds-accounting precondition the batch
// order encodes.
func (c *Compiler) CompileCollect(ctx context.Context, p *CollectPayload, skipReceive, skipSplit bool) (*Batch, error) {
	if p == nil {
		return nil, newMissingArgument("payload")
	}
	if p.TokenAddress == "" {
		return nil, newInvalidArgument("tokenAddress", "must not be empty")
	}
	if !common.IsHexAddress(p.TokenAddress) {
		return nil, newInvalidArgument("tokenAddress",
			fmt.Sprintf("%q is not a hex address", p.TokenAddress))
	}
	if p.SignerAddress == "" {
		return nil, newInvalidArgument("signerAddress", "no connected execution context")
	}
	if p.UserID == nil {
		return nil, newInvalidArgument("userId", "must not be nil")
	}

	token := common.HexToAddress(p.TokenAddress)
	calls := make([]txfactory.CallRequest, 0, len(p.Squeezes)+3)

	for _, sq := range p.Squeezes {
		if err := c.val.Squeeze(validate.SqueezeInput{
			SenderID:    sq.SenderID,
			HistoryHash: sq.HistoryHash,
			History:     sq.History,
		}); err != nil {
			return nil, wrapValidation("squeeze", err)
		}
		history, err := formatHistory(sq.History)
		if err != nil {
			return nil, err
		}
		call, err := c.enc.Build(ctx, txfactory.OpSqueezeDrips,
			p.UserID, token, sq.SenderID, sq.HistoryHash, history)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	if !skipReceive {
		if err := c.val.Receive(validate.ReceiveInput{MaxCycles: p.MaxCycles}); err != nil {
			return nil, wrapValidation("receive", err)
		}
		call, err := c.enc.Build(ctx, txfactory.OpReceiveDrips, p.UserID, token, p.MaxCycles)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	if !skipSplit {
		if err := c.val.Split(validate.SplitInput{Receivers: p.SplitsReceivers}); err != nil {
			return nil, wrapValidation("split", err)
		}
		splits := make([]txfactory.SplitsReceiver, len(p.SplitsReceivers))
		for i, r := range p.SplitsReceivers {
			splits[i] = txfactory.SplitsReceiver{UserId: r.UserID, Weight: r.Weight}
		}
		call, err := c.enc.Build(ctx, txfactory.OpSplit, p.UserID, token, splits)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	if err := c.val.Collect(validate.CollectInput{TransferTo: p.TransferTo}); err != nil {
		return nil, wrapValidation("collect", err)
	}
	call, err := c.enc.Build(ctx, txfactory.OpCollect,
		p.UserID, token, common.HexToAddress(p.TransferTo))
	if err != nil {
		return nil, err
	}
	calls = append(calls, call)

	return &Batch{Token: c.tokens.Generate(), Calls: calls}, nil
}

// formatReceivers runs the canonical formatter and maps the positional
// pairs into the encoder's tuple shape. Order violations propagate as
// codec errors, unchanged.
func formatReceivers(rs []streamcfg.Receiver) ([]txfactory.DripsReceiver, error) {
	pairs, err := streamcfg.FormatReceivers(rs)
	if err != nil {
		return nil, err
	}
	out := make([]txfactory.DripsReceiver, len(pairs))
	for i, p := range pairs {
		out[i] = txfactory.DripsReceiver{UserId: p[0], Config: p[1]}
	}
	return out, nil
}

func formatHistory(entries []validate.HistoryEntry) ([]txfactory.DripsHistoryEntry, error) {
	out := make([]txfactory.DripsHistoryEntry, len(entries))
	for i, h := range entries {
		receivers, err := formatReceivers(h.Receivers)
		if err != nil {
			return nil, err
		}
		out[i] = txfactory.DripsHistoryEntry{
			DripsHash:  h.DripsHash,
			Receivers:  receivers,
			UpdateTime: h.UpdateTime,
			MaxEnd:     h.MaxEnd,
		}
	}
	return out, nil
}
