// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix marks environment variables that override config keys.
// EXTRACTVAL_BATCH_WORKERS sets batch.workers.
const EnvPrefix = "EXTRACTVAL_"

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type BatchConfig struct {
	Workers int `koanf:"workers"`
}

type SchemaConfig struct {
	// Path points to a CUE schema document replacing the embedded one.
	Path string `koanf:"path"`
}

type Config struct {
	Log    LogConfig    `koanf:"log"`
	HTTP   HTTPConfig   `koanf:"http"`
	Batch  BatchConfig  `koanf:"batch"`
	Schema SchemaConfig `koanf:"schema"`
}

func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info"},
		HTTP:  HTTPConfig{Addr: ":8080"},
		Batch: BatchConfig{Workers: 4},
	}
}

// Load layers the defaults, the TOML file at path and the EXTRACTVAL_*
// environment, in that order. An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, os.Environ)
}

func load(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(data), tomlparser.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse TOML in '%s'%s: %w", path, tomlPosition(err), err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           cfg,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// transformEnvKey maps EXTRACTVAL_LOG_LEVEL to log.level. The first segment
// after the prefix names the section and the rest names the key. Empty
// values are dropped so that an unset-but-exported variable keeps the
// lower layer.
func transformEnvKey(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(name, "_")
	if !ok || section == "" || field == "" {
		return "", nil
	}
	return section + "." + field, value
}

func tomlPosition(err error) string {
	var derr *toml.DecodeError
	if !errors.As(err, &derr) {
		return ""
	}
	row, col := derr.Position()
	return fmt.Sprintf(" at line %d, column %d", row, col)
}

func (c *Config) Validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must not be empty")
	}
	return nil
}
