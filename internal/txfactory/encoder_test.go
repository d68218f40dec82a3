package txfactory

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testHub    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testDriver = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := New(testHub, testDriver, 1.2)
	require.NoError(t, err)
	return f
}

func TestNewRejectsLowMultiplier(t *testing.T) {
	_, err := New(testHub, testDriver, 0.9)
	require.Error(t, err)
}

func TestBuildSetDripsTargetsDriver(t *testing.T) {
	f := newTestFactory(t)
	receivers := []DripsReceiver{{UserId: big.NewInt(1), Config: big.NewInt(2)}}

	call, err := f.Build(context.Background(), OpSetDrips,
		testToken, receivers, big.NewInt(-100), receivers, testDriver)
	require.NoError(t, err)

	assert.Equal(t, testDriver, call.To)
	assert.GreaterOrEqual(t, len(call.Data), 4, "calldata carries a selector")
	assert.Zero(t, call.Value.Sign())
	assert.Zero(t, call.GasLimit, "gas is applied separately")
}

func TestBuildCollectTargetsHub(t *testing.T) {
	f := newTestFactory(t)

	call, err := f.Build(context.Background(), OpCollect,
		big.NewInt(5), testToken, testDriver)
	require.NoError(t, err)

	assert.Equal(t, testHub, call.To)
	assert.GreaterOrEqual(t, len(call.Data), 4)
}

func TestBuildSqueezeDripsEncodesHistory(t *testing.T) {
	f := newTestFactory(t)
	history := []DripsHistoryEntry{
		{DripsHash: [32]byte{1}, UpdateTime: 100, MaxEnd: 200},
		{
			Receivers:  []DripsReceiver{{UserId: big.NewInt(9), Config: big.NewInt(8)}},
			UpdateTime: 300,
			MaxEnd:     400,
		},
	}

	call, err := f.Build(context.Background(), OpSqueezeDrips,
		big.NewInt(5), testToken, big.NewInt(7), [32]byte{2}, history)
	require.NoError(t, err)
	assert.Equal(t, testHub, call.To)
}

func TestBuildSelectorsDiffer(t *testing.T) {
	f := newTestFactory(t)

	receive, err := f.Build(context.Background(), OpReceiveDrips,
		big.NewInt(1), testToken, uint32(10))
	require.NoError(t, err)

	collect, err := f.Build(context.Background(), OpCollect,
		big.NewInt(1), testToken, testDriver)
	require.NoError(t, err)

	assert.NotEqual(t, receive.Data[:4], collect.Data[:4])
}

func TestBuildDeterminism(t *testing.T) {
	f := newTestFactory(t)

	a, err := f.Build(context.Background(), OpReceiveDrips,
		big.NewInt(1), testToken, uint32(10))
	require.NoError(t, err)
	b, err := f.Build(context.Background(), OpReceiveDrips,
		big.NewInt(1), testToken, uint32(10))
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data, "same call must encode identically")
}

func TestBuildRejectsBadArity(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.Build(context.Background(), OpCollect, big.NewInt(1))
	require.Error(t, err, "argument count mismatch must fail, not mis-encode")
}

func TestBuildRejectsUnknownOp(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.Build(context.Background(), Op("mintUnicorns"))
	require.Error(t, err)
}

func TestBuildHonorsCancelledContext(t *testing.T) {
	f := newTestFactory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Build(ctx, OpCollect, big.NewInt(1), testToken, testDriver)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPadGasRoundsUp(t *testing.T) {
	f := newTestFactory(t)

	assert.Equal(t, uint64(120), f.PadGas(100))
	assert.Equal(t, uint64(2), f.PadGas(1), "padding rounds up, never down")
	assert.Equal(t, uint64(0), f.PadGas(0))
}
