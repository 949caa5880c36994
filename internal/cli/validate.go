// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gemaraproj/extractval/internal/extraction"
)

func newValidateCommand(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Validate one extraction result read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			start := time.Now()
			outcome := extraction.NewEngine(a.registry).ProcessBytes(data, format)
			a.logger.Debug("validated extraction", "valid", outcome.Valid,
				"violations", len(outcome.Violations), "elapsed", time.Since(start))

			if err := writeOutput(cmd.OutOrStdout(), output, outcome); err != nil {
				return err
			}
			if !outcome.Valid {
				return ErrInvalidOutcome
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "payload format: json or yaml (auto-detected when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file '%s': %w", args[0], err)
	}
	return data, nil
}

func newSchemaCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the item types, field rules and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeOutput(cmd.OutOrStdout(), output, a.registry.Describe())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: json or yaml")
	return cmd
}
