// SPDX-License-Identifier: Apache-2.0

// Package cli wires configuration, logging and the schema registry into the
// extractval commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/gemaraproj/extractval/internal/config"
	"github.com/gemaraproj/extractval/internal/extraction/schema"
	"github.com/gemaraproj/extractval/internal/logging"
)

// ErrInvalidOutcome is returned by validate when the payload has violations.
var ErrInvalidOutcome = errors.New("extraction result is invalid")

// Version is set at build time.
var Version = "dev"

type app struct {
	configPath string
	logLevel   string
	logJSON    bool

	cfg      *config.Config
	logger   *charmlog.Logger
	registry *schema.Registry
}

// NewRootCommand builds the extractval command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "extractval",
		Short:         "Validate and normalize extraction results",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a TOML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "emit logs as JSON")

	root.AddCommand(
		newValidateCommand(a),
		newSchemaCommand(a),
		newServeCommand(a),
		newServeHTTPCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.JSON = cfg.Log.JSON
	logCfg.Output = cmd.ErrOrStderr()
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cfg.Schema.Path)
	if err != nil {
		return err
	}
	logger.Debug("schema loaded", "item_types", reg.ItemTypes(), "path", cfg.Schema.Path)

	a.cfg = cfg
	a.logger = logger
	a.registry = reg
	return nil
}

func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.Embedded()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file '%s': %w", path, err)
	}
	return schema.Load(src)
}

func writeOutput(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
