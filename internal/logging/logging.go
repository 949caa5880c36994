// SPDX-License-Identifier: Apache-2.0

// Package logging configures the structured logger used by the command and
// server layers.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

type Config struct {
	Level  string
	JSON   bool
	Output io.Writer
}

func DefaultConfig() Config {
	return Config{Level: "info", Output: os.Stderr}
}

// ParseLevel accepts debug, info, warn and error. An empty string means info.
func ParseLevel(level string) (charmlog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return charmlog.DebugLevel, nil
	case "", "info":
		return charmlog.InfoLevel, nil
	case "warn", "warning":
		return charmlog.WarnLevel, nil
	case "error":
		return charmlog.ErrorLevel, nil
	}
	return charmlog.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// New builds a logger. Logs go to stderr by default so that stdout stays free
// for command output and the MCP stdio transport.
func New(cfg Config) (*charmlog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	logger := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
		Prefix:          "extractval",
	})
	if cfg.JSON {
		logger.SetFormatter(charmlog.JSONFormatter)
	}
	return logger, nil
}
