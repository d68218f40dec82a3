package cli

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dripforge/dripforge/internal/eventstore"
	"github.com/dripforge/dripforge/internal/reconcile"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	FromDB  string // reconcile from the sqlite cache instead of a JSON file
	UserID  string
	AssetID string
}

// reconciledJSON is one reconciled event in command output.
type reconciledJSON struct {
	UserID           string         `json:"userId"`
	AssetID          string         `json:"assetId"`
	ReceiversHash    string         `json:"receiversHash"`
	BlockTimestamp   uint64         `json:"blockTimestamp"`
	CurrentReceivers []receiverJSON `json:"currentReceivers"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile [events.json]",
		Short: "Rebuild complete receiver lists from a set-event log",
		Long: `Rebuild, for every historical set event, the complete receiver list
active at that event. Events are read from a JSON file, or from the local
event cache with --db. The whole log for a receivers hash must be present
for its reconstruction to be trustworthy.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runReconcile(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FromDB, "db", "", "reconcile from the event cache at this path")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "stream owner id (required with --db)")
	cmd.Flags().StringVar(&opts.AssetID, "asset", "", "asset id (required with --db)")

	return cmd
}

func runReconcile(opts *ReconcileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var (
		events []reconcile.SetEvent
		err    error
	)
	switch {
	case opts.FromDB != "":
		events, err = loadEventsFromStore(cmd, opts)
	case path != "":
		events, err = loadEventsFromFile(path)
	default:
		return formatter.Failure(ExitCommandError, "E_BAD_INPUT",
			"either an events file or --db is required")
	}
	if err != nil {
		return formatter.Failure(ExitCommandError, "E_LOAD", err.Error())
	}

	formatter.VerboseLog("Reconciling %d set event(s)", len(events))
	zap.L().Debug("reconciling events", zap.Int("count", len(events)))

	out, err := reconcile.Reconcile(events)
	if err != nil {
		return formatter.Failure(ExitFailure, "E_RECONCILE", err.Error())
	}

	result := make([]reconciledJSON, len(out))
	for i, ev := range out {
		receivers := make([]receiverJSON, len(ev.CurrentReceivers))
		for k, r := range ev.CurrentReceivers {
			receivers[k] = receiverJSON{UserID: r.UserID.String(), Config: r.Config.String()}
		}
		result[i] = reconciledJSON{
			UserID:           ev.UserID.String(),
			AssetID:          ev.AssetID.String(),
			ReceiversHash:    "0x" + hex.EncodeToString(ev.ReceiversHash[:]),
			BlockTimestamp:   ev.BlockTimestamp,
			CurrentReceivers: receivers,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "encode result", err)
	}
	return formatter.Success(string(encoded))
}

func loadEventsFromFile(path string) ([]reconcile.SetEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wire []setEventJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	events := make([]reconcile.SetEvent, len(wire))
	for i := range wire {
		events[i], err = wire[i].toEvent()
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

func loadEventsFromStore(cmd *cobra.Command, opts *ReconcileOptions) ([]reconcile.SetEvent, error) {
	userID, err := parseBigInt("user", opts.UserID)
	if err != nil {
		return nil, err
	}
	assetID, err := parseBigInt("asset", opts.AssetID)
	if err != nil {
		return nil, err
	}

	store, err := eventstore.Open(opts.FromDB)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.ListSetEvents(cmd.Context(), userID, assetID)
}
