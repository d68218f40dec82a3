package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dripforge/dripforge/internal/config"
	"github.com/dripforge/dripforge/internal/flows"
	"github.com/dripforge/dripforge/internal/txfactory"
)

// CompileOptions holds flags for the compile subcommands.
type CompileOptions struct {
	*RootOptions
	HubAddress    string
	DriverAddress string
	SkipReceive   bool
	SkipSplit     bool
}

// NewCompileCommand creates the compile command with its flow subcommands.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile payment intents into ordered call batches",
		Long: `Compile a payment intent described in a JSON payload file into an
ordered batch of ledger calls. Each batch is all-or-nothing: any
validation or encoding failure rejects the whole payload and no calls
are emitted.`,
	}

	cmd.PersistentFlags().StringVar(&opts.HubAddress, "hub", "", "ledger hub contract address (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.DriverAddress, "driver", "", "stream driver contract address (overrides config)")

	streamCmd := &cobra.Command{
		Use:           "stream-update <payload.json>",
		Short:         "Compile a stream configuration update",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileStreamUpdate(opts, args[0], cmd)
		},
	}

	collectCmd := &cobra.Command{
		Use:           "collect <payload.json>",
		Short:         "Compile a funds collection flow",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCollect(opts, args[0], cmd)
		},
	}
	collectCmd.Flags().BoolVar(&opts.SkipReceive, "skip-receive", false, "omit the cycle-receive step")
	collectCmd.Flags().BoolVar(&opts.SkipSplit, "skip-split", false, "omit the split step")

	cmd.AddCommand(streamCmd)
	cmd.AddCommand(collectCmd)

	return cmd
}

func runCompileStreamUpdate(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	compiler, err := newCompiler(opts)
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_CONFIG", err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_LOAD", err.Error())
	}
	var wire streamUpdateJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT", err.Error())
	}
	payload, err := wire.toPayload()
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT", err.Error())
	}

	formatter.VerboseLog("Compiling stream update for user %s", payload.UserID)
	batch, err := compiler.CompileStreamUpdate(cmd.Context(), payload)
	if err != nil {
		return formatter.Failure(ExitFailure, "E_COMPILE", err.Error())
	}

	zap.L().Info("compiled stream update batch",
		zap.String("batchToken", batch.Token),
		zap.Int("calls", len(batch.Calls)))
	return emitBatch(formatter, batch)
}

func runCompileCollect(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	compiler, err := newCompiler(opts)
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_CONFIG", err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_LOAD", err.Error())
	}
	var wire collectJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT", err.Error())
	}
	payload, err := wire.toPayload()
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT", err.Error())
	}

	formatter.VerboseLog("Compiling collect flow for user %s (%d squeeze(s))",
		payload.UserID, len(payload.Squeezes))
	batch, err := compiler.CompileCollect(cmd.Context(), payload, opts.SkipReceive, opts.SkipSplit)
	if err != nil {
		return formatter.Failure(ExitFailure, "E_COMPILE", err.Error())
	}

	zap.L().Info("compiled collect batch",
		zap.String("batchToken", batch.Token),
		zap.Int("calls", len(batch.Calls)))
	return emitBatch(formatter, batch)
}

// newCompiler builds a flow compiler from config plus flag overrides. Both
// contract addresses must resolve to something before encoding can start.
func newCompiler(opts *CompileOptions) (*flows.Compiler, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	hub := cfg.HubAddress
	if opts.HubAddress != "" {
		hub = opts.HubAddress
	}
	driver := cfg.DriverAddress
	if opts.DriverAddress != "" {
		driver = opts.DriverAddress
	}
	if !common.IsHexAddress(hub) {
		return nil, fmt.Errorf("hub address %q is not a hex address", hub)
	}
	if !common.IsHexAddress(driver) {
		return nil, fmt.Errorf("driver address %q is not a hex address", driver)
	}

	factory, err := txfactory.New(
		common.HexToAddress(hub), common.HexToAddress(driver), cfg.GasMultiplier)
	if err != nil {
		return nil, err
	}
	return flows.NewCompiler(factory, flows.Suite{}, flows.UUIDv7Generator{}), nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func emitBatch(formatter *OutputFormatter, batch *flows.Batch) error {
	out := batchToJSON(batch)
	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "encode batch", err)
	}
	return formatter.Success(string(encoded))
}
