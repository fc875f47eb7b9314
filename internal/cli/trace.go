package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	System   string
	OpType   string
	Status   string
	Limit    int
}

// TraceRecord is one projected operation in the trace output.
type TraceRecord struct {
	Seq       int64  `json:"seq"`
	System    string `json:"system"`
	OpType    string `json:"op_type"`
	Timestamp int64  `json:"timestamp"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	DedupKey  string `json:"dedup_key,omitempty"`
}

// TraceOutput holds the trace listing plus summary counts.
type TraceOutput struct {
	Records []TraceRecord `json:"records"`
	Applied int           `json:"applied"`
	Failed  int           `json:"failed"`
	Total   int           `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List projected operations from a view database",
		Long: `List the operations projected into a view database, in log order.

Both applied operations and audited rejections appear; filters narrow
the listing by system, operation type or status.

Examples:
  autobase trace --db ./node.db
  autobase trace --db ./node.db --system currency --status failed
  autobase trace --db ./node.db --type TRANSFER --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the view database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.System, "system", "", "filter by system")
	cmd.Flags().StringVar(&opts.OpType, "type", "", "filter by operation type")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (success|failed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Status != "" && opts.Status != view.StatusSuccess && opts.Status != view.StatusFailed {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be success or failed", opts.Status))
	}
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	v, err := view.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer v.Close()

	records, err := v.List(ctx, view.Filter{
		System: opts.System,
		OpType: opts.OpType,
		Status: opts.Status,
		Limit:  opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list records", err)
	}

	output := TraceOutput{
		Records: make([]TraceRecord, 0, len(records)),
		Total:   len(records),
	}
	for _, rec := range records {
		tr := TraceRecord{
			Seq:       rec.Seq,
			System:    rec.System,
			OpType:    rec.OpType,
			Timestamp: rec.Time,
			Status:    rec.Status,
			Reason:    rec.Reason,
		}
		if opts.Verbose {
			tr.DedupKey = rec.DedupKey
		}
		output.Records = append(output.Records, tr)
		if rec.Status == view.StatusSuccess {
			output.Applied++
		} else {
			output.Failed++
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), output)
	}
	return outputTraceText(cmd, output, opts.Verbose)
}

// outputTraceText renders the trace listing as text.
func outputTraceText(cmd *cobra.Command, output TraceOutput, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(output.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	for _, rec := range output.Records {
		marker := "OK  "
		if rec.Status == view.StatusFailed {
			marker = "FAIL"
		}
		fmt.Fprintf(w, "  [%d] %s %s/%s", rec.Seq, marker, rec.System, rec.OpType)
		if rec.Reason != "" {
			fmt.Fprintf(w, " (%s)", rec.Reason)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "       ts=%d dedup=%s\n", rec.Timestamp, rec.DedupKey)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d (%d applied, %d failed)\n", output.Total, output.Applied, output.Failed)
	return nil
}
