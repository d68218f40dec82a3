package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Known packed form of dripId=1, amountPerSec=1, start=1, duration=1.
const packedOnes = "26959946667150639794667015087019630673637144422559019225181614768129"

func TestPackKnownValue(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--drip-id", "1", "--rate", "1", "--start", "1", "--duration", "1"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, packedOnes, strings.TrimSpace(buf.String()))
}

func TestPackJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--drip-id", "1", "--rate", "1", "--start", "1", "--duration", "1"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, packedOnes, data["packed"])
}

func TestPackRejectsOversizedRate(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	// 2^160 does not fit the 160-bit rate field.
	rate := "1461501637330902918203684832716283019655932542976"
	cmd.SetArgs([]string{"--rate", rate})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "error:")
}

func TestPackRejectsNonDecimalRate(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--rate", "0x10"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPackRequiresRateOrAmount(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--drip-id", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate")
}

func TestPackFromCycleAmount(t *testing.T) {
	// 0.6048 at 6 decimals is 604800 smallest units per cycle; the default
	// cycle is 604800 seconds, so the rate is exactly 1.
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		"--drip-id", "1", "--amount", "0.6048", "--decimals", "6",
		"--start", "1", "--duration", "1",
	})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, packedOnes, strings.TrimSpace(buf.String()))
}

func TestPackRejectsRateAndAmountTogether(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewPackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--rate", "1", "--amount", "1"})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestUnpackKnownValue(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewUnpackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{packedOnes})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["dripId"])
	assert.Equal(t, "1", data["amountPerSec"])
	assert.Equal(t, float64(1), data["start"])
	assert.Equal(t, float64(1), data["duration"])
}

func TestUnpackRejectsOverwideValue(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewUnpackCommand(rootOpts)
	cmd.SetOut(buf)
	// 2^256 needs 257 bits.
	cmd.SetArgs([]string{"115792089237316195423570985008687907853269984665640564039457584007913129639936"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestUnpackRejectsGarbage(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewUnpackCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"not-a-number"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_BAD_INPUT", resp.Error.Code)
}
