package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hubAddr    = "0x1111111111111111111111111111111111111111"
	driverAddr = "0x2222222222222222222222222222222222222222"
	tokenAddr  = "0x3333333333333333333333333333333333333333"
	destAddr   = "0x4444444444444444444444444444444444444444"
)

func writePayloadFile(t *testing.T, payload any) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func decodeBatch(t *testing.T, raw []byte) batchJSON {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Equal(t, "ok", resp.Status)

	encoded, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var batch batchJSON
	require.NoError(t, json.Unmarshal(encoded, &batch))
	return batch
}

func streamUpdateFixture() streamUpdateJSON {
	return streamUpdateJSON{
		TokenAddress:  tokenAddr,
		SignerAddress: destAddr,
		UserID:        "7",
		CurrentReceivers: []receiverJSON{
			{UserID: "10", Config: "1000"},
		},
		NewReceivers: []receiverJSON{
			{UserID: "10", Config: "1000"},
			{UserID: "20", Config: "2000"},
		},
		BalanceDelta: "500",
		TransferTo:   destAddr,
	}
}

func TestCompileStreamUpdate(t *testing.T) {
	path := writePayloadFile(t, streamUpdateFixture())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stream-update", path, "--hub", hubAddr, "--driver", driverAddr})

	err := cmd.Execute()
	require.NoError(t, err)

	batch := decodeBatch(t, buf.Bytes())
	assert.NotEmpty(t, batch.BatchToken)
	require.Len(t, batch.Calls, 2)
	for _, call := range batch.Calls {
		assert.Equal(t, driverAddr, call.To)
		assert.True(t, len(call.Data) > len("0x"))
		assert.Equal(t, "0", call.Value)
	}
	// setDrips and emitUserMetadata have distinct selectors.
	assert.NotEqual(t, batch.Calls[0].Data[:10], batch.Calls[1].Data[:10])
}

func TestCompileStreamUpdateRejectsUnsortedReceivers(t *testing.T) {
	payload := streamUpdateFixture()
	payload.NewReceivers = []receiverJSON{
		{UserID: "20", Config: "2000"},
		{UserID: "10", Config: "1000"},
	}
	path := writePayloadFile(t, payload)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stream-update", path, "--hub", hubAddr, "--driver", driverAddr})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_COMPILE", resp.Error.Code)
}

func TestCompileStreamUpdateRequiresAddresses(t *testing.T) {
	path := writePayloadFile(t, streamUpdateFixture())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stream-update", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileStreamUpdateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		"stream-update", filepath.Join(t.TempDir(), "absent.json"),
		"--hub", hubAddr, "--driver", driverAddr,
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func collectFixture() collectJSON {
	return collectJSON{
		TokenAddress:  tokenAddr,
		SignerAddress: destAddr,
		UserID:        "7",
		Squeezes: []squeezeJSON{
			{
				SenderID: "3",
				History: []historyEntryJSON{
					{
						Receivers:  []receiverJSON{{UserID: "7", Config: "1000"}},
						UpdateTime: 100,
						MaxEnd:     200,
					},
				},
			},
		},
		MaxCycles: 10,
		SplitsReceivers: []splitsReceiverJSON{
			{UserID: "40", Weight: 500_000},
		},
		TransferTo: destAddr,
	}
}

func TestCompileCollectFull(t *testing.T) {
	path := writePayloadFile(t, collectFixture())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"collect", path, "--hub", hubAddr, "--driver", driverAddr})

	err := cmd.Execute()
	require.NoError(t, err)

	batch := decodeBatch(t, buf.Bytes())
	// squeeze, receive, split, collect, in that order, all against the hub.
	require.Len(t, batch.Calls, 4)
	for _, call := range batch.Calls {
		assert.Equal(t, hubAddr, call.To)
	}
}

func TestCompileCollectSkipFlags(t *testing.T) {
	path := writePayloadFile(t, collectFixture())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		"collect", path, "--hub", hubAddr, "--driver", driverAddr,
		"--skip-receive", "--skip-split",
	})

	err := cmd.Execute()
	require.NoError(t, err)

	batch := decodeBatch(t, buf.Bytes())
	// Only the squeeze and the final collect remain.
	require.Len(t, batch.Calls, 2)
}

func TestCompileCollectRejectsOverweightSplits(t *testing.T) {
	payload := collectFixture()
	payload.SplitsReceivers = []splitsReceiverJSON{
		{UserID: "40", Weight: 600_000},
		{UserID: "41", Weight: 600_000},
	}
	path := writePayloadFile(t, payload)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"collect", path, "--hub", hubAddr, "--driver", driverAddr})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
