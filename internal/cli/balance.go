package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/QalbeHabib/autobase-smart-contract/internal/harness"
	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// BalanceOptions holds flags for the balance command.
type BalanceOptions struct {
	*RootOptions
	Database   string
	CurrencyID string
	Address    string
}

// BalanceResult holds one queried balance.
type BalanceResult struct {
	CurrencyID  string `json:"currency_id"`
	Address     string `json:"address,omitempty"`
	Balance     int64  `json:"balance"`
	TotalSupply int64  `json:"total_supply"`
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Query currency balances from a view database",
		Long: `Rebuild ledger state from the applied operations stored in a view
database and report balances. The query is offline: no log transport is
needed, only the database file.

Examples:
  autobase balance --db ./node.db --currency gold
  autobase balance --db ./node.db --currency gold --address alice
  autobase balance --db ./node.db --currency gold --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the view database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.CurrencyID, "currency", "", "currency to query (required)")
	_ = cmd.MarkFlagRequired("currency")
	cmd.Flags().StringVar(&opts.Address, "address", "", "address to query; omit for supply only")

	return cmd
}

func runBalance(opts *BalanceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	w, cleanup, err := rebuildWorld(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer cleanup()

	result := BalanceResult{
		CurrencyID:  opts.CurrencyID,
		Address:     opts.Address,
		TotalSupply: w.Ledger.TotalSupply(opts.CurrencyID),
	}
	if opts.Address != "" {
		result.Balance = w.Ledger.BalanceOf(opts.CurrencyID, opts.Address)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	p := message.NewPrinter(language.English)
	if opts.Address != "" {
		p.Fprintf(out, "Balance of %s in %s: %d\n", opts.Address, result.CurrencyID, result.Balance)
	}
	p.Fprintf(out, "Total supply of %s: %d\n", result.CurrencyID, result.TotalSupply)
	return nil
}

// rebuildWorld replays the applied operations from a view database into a
// fresh in-memory world. The returned cleanup closes the world and removes
// its scratch database.
func rebuildWorld(ctx context.Context, dbPath string) (*harness.World, func(), error) {
	v, err := view.Open(dbPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	src, err := view.NewReplaySource(ctx, v)
	if err != nil {
		v.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to load operations", err)
	}
	// The snapshot is in memory now; the source database is no longer needed.
	if err := v.Close(); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to close database", err)
	}

	dir, err := os.MkdirTemp("", "autobase-query-")
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to create scratch directory", err)
	}

	w, err := harness.NewWorld(filepath.Join(dir, "rebuild.db"), src, nil)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, WrapExitError(ExitCommandError, "failed to wire state machines", err)
	}

	if err := w.Dispatcher.Replay(ctx); err != nil {
		w.Close()
		os.RemoveAll(dir)
		return nil, nil, WrapExitError(ExitFailure, "replay failed", err)
	}

	cleanup := func() {
		w.Close()
		os.RemoveAll(dir)
	}
	return w, cleanup, nil
}
