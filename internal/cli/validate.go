package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/QalbeHabib/autobase-smart-contract/internal/config"
)

// ValidationResult holds the outcome of definitions validation.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Currencies int    `json:"currencies"`
	Resources  int    `json:"resources"`
	Error      string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions-file>",
		Short: "Validate a CUE definitions file",
		Long: `Validate currency and resource definitions against the embedded schema
without starting a node.

Exit codes:
  0 - Definitions valid
  1 - Definitions invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("definitions file not found: %s", path))
	}

	defs, err := config.Load(path)
	if err != nil {
		result := ValidationResult{Valid: false, Error: err.Error()}
		if opts.Format == "json" {
			if encErr := writeJSON(w, result); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  %v\n", err)
		}
		return NewExitError(ExitFailure, "definitions invalid")
	}

	result := ValidationResult{
		Valid:      true,
		Currencies: len(defs.Currencies),
		Resources:  len(defs.Resources),
	}
	if opts.Format == "json" {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "✓ Definitions valid (%d currencies, %d resources)\n", result.Currencies, result.Resources)
	if opts.Verbose {
		for _, c := range defs.Currencies {
			fmt.Fprintf(w, "  currency %s: decimals=%d maxSupply=%d\n", c.ID, c.Decimals, c.MaxSupply)
		}
		for _, r := range defs.Resources {
			fmt.Fprintf(w, "  resource %s: maxSupply=%d\n", r.ID, r.MaxSupply)
		}
	}
	return nil
}
