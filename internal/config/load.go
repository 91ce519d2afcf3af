// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvDatabaseURL overrides database.url when set.
const EnvDatabaseURL = "DATABASE_URL"

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"http-addr":     "http.addr",
	"trust-proxy":   "http.trust_proxy",
	"metrics-addr":  "metrics.addr",
	"log-format":    "log.format",
	"log-level":     "log.level",
	"database-url":  "database.url",
	"auto-activate": "auth.auto_activate",
}

// RegisterFlags adds the config override flags to fs. Only flags the user
// sets take effect, so their defaults are informational.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.Bool("trust-proxy", d.HTTP.TrustProxy, "take the client address from proxy headers")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection string")
	fs.Bool("auto-activate", d.Auth.AutoActivate, "activate accounts at registration")
}

// Load merges defaults, the YAML file at path (skipped when empty), changed
// flags from fs (may be nil) and DATABASE_URL, then validates the result.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	parser := yaml.Parser()

	defaults, err := yamlv3.Marshal(Default())
	if err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "encode defaults").Wrap(err)
	}
	if err := k.Load(rawbytes.Provider(defaults), parser); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load defaults").Wrap(err)
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return Config{}, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	if url, ok := os.LookupEnv(EnvDatabaseURL); ok && url != "" {
		if err := k.Set("database.url", url); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "apply environment").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
