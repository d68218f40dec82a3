// Package txfactory turns (operation, arguments) pairs into ready-to-submit
// ledger calls. The produced CallRequest is opaque to callers: the flow
// compiler orders them into batches without inspecting the calldata.
package txfactory

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Op names a ledger operation the factory can encode.
type Op string

// Operations, split across the two target contracts.
const (
	OpSetDrips         Op = "setDrips"
	OpEmitUserMetadata Op = "emitUserMetadata"
	OpSqueezeDrips     Op = "squeezeDrips"
	OpReceiveDrips     Op = "receiveDrips"
	OpSplit            Op = "split"
	OpCollect          Op = "collect"
)

// DripsReceiver is the (userId, config) tuple shape of stream receiver
// arguments.
type DripsReceiver struct {
	UserId *big.Int
	Config *big.Int
}

// SplitsReceiver is the (userId, weight) tuple shape of split receiver
// arguments.
type SplitsReceiver struct {
	UserId *big.Int
	Weight uint32
}

// DripsHistoryEntry is one step of a sender's configuration history, as
// claimed in a squeeze call. Either DripsHash is set (a hashed, skipped
// step) or Receivers carries the step's full list, never both.
type DripsHistoryEntry struct {
	DripsHash  [32]byte
	Receivers  []DripsReceiver
	UpdateTime uint32
	MaxEnd     uint32
}

// MetadataEntry is one (key, value) pair emitted alongside a stream update.
type MetadataEntry struct {
	Key   [32]byte
	Value []byte
}

// CallRequest is a ready-to-submit ledger call. Data is ABI-encoded
// calldata; GasLimit is zero until a padded estimate is applied.
type CallRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Factory encodes ledger calls against a fixed pair of deployed contracts.
//
// Stateless after construction; safe for concurrent use.
type Factory struct {
	hubAddr       common.Address
	driverAddr    common.Address
	hub           abi.ABI
	driver        abi.ABI
	gasMultiplier float64
}

// New parses the embedded contract ABIs and returns a factory targeting the
// given deployments. gasMultiplier pads externally-supplied gas estimates
// and must be at least 1.
func New(hubAddr, driverAddr common.Address, gasMultiplier float64) (*Factory, error) {
	if gasMultiplier < 1 {
		return nil, fmt.Errorf("gas multiplier %v must be >= 1", gasMultiplier)
	}
	hub, err := abi.JSON(strings.NewReader(hubABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse hub ABI: %w", err)
	}
	driver, err := abi.JSON(strings.NewReader(driverABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse driver ABI: %w", err)
	}
	return &Factory{
		hubAddr:       hubAddr,
		driverAddr:    driverAddr,
		hub:           hub,
		driver:        driver,
		gasMultiplier: gasMultiplier,
	}, nil
}

// Build ABI-encodes one ledger call. Argument count and types must match
// the operation's contract signature exactly; mismatches surface as encode
// errors, never as silently wrong calldata.
func (f *Factory) Build(ctx context.Context, op Op, args ...any) (CallRequest, error) {
	if err := ctx.Err(); err != nil {
		return CallRequest{}, fmt.Errorf("build %s: %w", op, err)
	}

	contract, to, err := f.target(op)
	if err != nil {
		return CallRequest{}, err
	}

	data, err := contract.Pack(string(op), args...)
	if err != nil {
		return CallRequest{}, fmt.Errorf("encode %s: %w", op, err)
	}

	return CallRequest{
		To:    to,
		Data:  data,
		Value: big.NewInt(0),
	}, nil
}

// PadGas applies the configured multiplier to an externally-supplied gas
// estimate, rounding up. The factory never estimates gas itself.
func (f *Factory) PadGas(estimate uint64) uint64 {
	return uint64(math.Ceil(float64(estimate) * f.gasMultiplier))
}

func (f *Factory) target(op Op) (abi.ABI, common.Address, error) {
	switch op {
	case OpSetDrips, OpEmitUserMetadata:
		return f.driver, f.driverAddr, nil
	case OpSqueezeDrips, OpReceiveDrips, OpSplit, OpCollect:
		return f.hub, f.hubAddr, nil
	default:
		return abi.ABI{}, common.Address{}, fmt.Errorf("unknown operation %q", op)
	}
}
