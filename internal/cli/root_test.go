package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dripforge", cmd.Use)
	assert.Contains(t, cmd.Long, "call batches")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"pack", "unpack", "reconcile", "compile"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
}

func TestInvalidFormatRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "xml", "unpack", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	collectCmd, _, err := cmd.Find([]string{"compile", "collect"})
	require.NoError(t, err)
	require.NotNil(t, collectCmd.Flags().Lookup("skip-receive"))
	require.NotNil(t, collectCmd.Flags().Lookup("skip-split"))

	streamCmd, _, err := cmd.Find([]string{"compile", "stream-update"})
	require.NoError(t, err)
	require.NotNil(t, streamCmd.InheritedFlags().Lookup("hub"))
	require.NotNil(t, streamCmd.InheritedFlags().Lookup("driver"))
}

func TestReconcileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	reconcileCmd, _, err := cmd.Find([]string{"reconcile"})
	require.NoError(t, err)

	require.NotNil(t, reconcileCmd.Flags().Lookup("db"))
	require.NotNil(t, reconcileCmd.Flags().Lookup("user"))
	require.NotNil(t, reconcileCmd.Flags().Lookup("asset"))
}
