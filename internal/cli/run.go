package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QalbeHabib/autobase-smart-contract/internal/config"
	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/identity"
	"github.com/QalbeHabib/autobase-smart-contract/internal/inventory"
	"github.com/QalbeHabib/autobase-smart-contract/internal/ledger"
	"github.com/QalbeHabib/autobase-smart-contract/internal/oplog"
	"github.com/QalbeHabib/autobase-smart-contract/internal/perm"
	"github.com/QalbeHabib/autobase-smart-contract/internal/tokengate"
	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Definitions string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a replication node",
		Long: `Start a node: open the durable view, wire all domain state machines,
replay existing history and then deliver new log entries until interrupted.

Example:
  autobase run --db ./node.db
  autobase run --db ./node.db --definitions ./definitions.cue --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the durable view database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Definitions, "definitions", "", "path to a CUE definitions file")

	return cmd
}

func runNode(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var currencies []ledger.Config
	var resources []config.Resource
	if opts.Definitions != "" {
		defs, err := config.Load(opts.Definitions)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load definitions", err)
		}
		currencies = defs.CurrencyConfigs()
		resources = defs.Resources
		slog.Info("definitions loaded",
			"currencies", len(defs.Currencies),
			"resources", len(defs.Resources),
		)
	}

	slog.Info("opening durable view", "path", opts.Database)
	v, err := view.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open view", err)
	}
	defer func() {
		if closeErr := v.Close(); closeErr != nil {
			slog.Error("error closing view", "error", closeErr)
		}
	}()

	log := oplog.NewMemlog()
	d := dispatch.New(log, v)
	defer d.Close()

	led := ledger.New(d, currencies...)
	inv := inventory.New(d)
	for _, m := range []dispatch.Machine{
		identity.New(d),
		perm.New(d),
		led,
		inv,
		tokengate.New(d, led),
	} {
		d.Register(m)
	}

	// Resume: seed the dedup ledger from the view so history projected by
	// a previous run is not applied twice.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if err := d.PreloadDedup(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to preload dedup keys", err)
	}

	// Replay before seeding so the existence checks see log state; the
	// delivery loop's own initialization then becomes a no-op.
	if err := d.ForceInitialize(ctx); err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}
	if err := seedResources(ctx, inv, resources); err != nil {
		return WrapExitError(ExitFailure, "failed to seed resources", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Node started. Delivering log entries...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "node error", err)
	}

	slog.Info("node stopped gracefully")
	return nil
}

// seedResources pushes declared resource definitions through the write path
// so they replicate as ordinary log entries. Definitions that already exist
// in log state are left untouched.
func seedResources(ctx context.Context, inv *inventory.Inventory, resources []config.Resource) error {
	for _, r := range resources {
		if _, ok := inv.Resource(r.ID); ok {
			continue
		}
		ok, err := inv.CreateResource(ctx, r.ID, r.Name, r.Description, r.MaxSupply, "system")
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("resource definition rejected", "resource", r.ID)
			continue
		}
		slog.Info("resource definition seeded", "resource", r.ID, "max_supply", r.MaxSupply)
	}
	return nil
}
