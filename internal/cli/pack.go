package cli

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dripforge/dripforge/internal/config"
	"github.com/dripforge/dripforge/internal/streamcfg"
)

// PackOptions holds flags for the pack command.
type PackOptions struct {
	*RootOptions
	DripID   uint32
	Rate     string
	Amount   string
	Decimals int32
	Start    uint32
	Duration uint32
}

// PackResult is the pack command's output shape.
type PackResult struct {
	Packed string `json:"packed"`
}

// NewPackCommand creates the pack command.
func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack stream parameters into their canonical integer form",
		Long: `Pack a receiver's streaming parameters into the canonical 256-bit
integer the ledger hashes over. Out-of-range values are rejected, never
truncated.

The rate is given either directly with --rate (smallest units per second)
or as a human amount per cycle with --amount and --decimals, converted
using the configured cycle length.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.DripID, "drip-id", 0, "stream identifier within the user's streams")
	cmd.Flags().StringVar(&opts.Rate, "rate", "", "amount per second in smallest units (decimal)")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "human amount per cycle, converted via --decimals and the configured cycle length")
	cmd.Flags().Int32Var(&opts.Decimals, "decimals", 18, "asset decimals used with --amount")
	cmd.Flags().Uint32Var(&opts.Start, "start", 0, "unix start timestamp (0 = now)")
	cmd.Flags().Uint32Var(&opts.Duration, "duration", 0, "duration in seconds (0 = until balance runs out)")
	cmd.MarkFlagsMutuallyExclusive("rate", "amount")
	cmd.MarkFlagsOneRequired("rate", "amount")

	return cmd
}

func runPack(opts *PackOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	rate, err := resolveRate(opts)
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT", err.Error())
	}

	cfg := streamcfg.StreamConfig{
		DripID:       opts.DripID,
		AmountPerSec: rate,
		Start:        opts.Start,
		Duration:     opts.Duration,
	}
	packed, err := cfg.Pack()
	if err != nil {
		return formatter.Failure(ExitFailure, "E_PACK", err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(PackResult{Packed: packed.String()})
	}
	return formatter.Success(packed.String())
}

func resolveRate(opts *PackOptions) (*big.Int, error) {
	if opts.Rate != "" {
		return parseBigInt("rate", opts.Rate)
	}

	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return streamcfg.PerSecond(amount, opts.Decimals, cfg.CycleSeconds)
}

// UnpackResult is the unpack command's output shape.
type UnpackResult struct {
	DripID       uint32 `json:"dripId"`
	AmountPerSec string `json:"amountPerSec"`
	Start        uint32 `json:"start"`
	Duration     uint32 `json:"duration"`
}

// NewUnpackCommand creates the unpack command.
func NewUnpackCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "unpack <packed>",
		Short:         "Unpack a canonical integer back into stream parameters",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpack(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runUnpack(opts *RootOptions, raw string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	packed, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT", "argument is not a decimal integer")
	}

	cfg, err := streamcfg.Unpack(packed)
	if err != nil {
		return formatter.Failure(ExitFailure, "E_UNPACK", err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(UnpackResult{
			DripID:       cfg.DripID,
			AmountPerSec: cfg.AmountPerSec.String(),
			Start:        cfg.Start,
			Duration:     cfg.Duration,
		})
	}
	return formatter.Success(cfg.String())
}
