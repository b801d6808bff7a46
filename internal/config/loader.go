package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces the environment variables read by Load.
const EnvPrefix = "TERRACLASS_"

// Load resolves the configuration. Precedence, highest to lowest:
// flags > environment > config file > defaults. cfgFile overrides the
// default config file search; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFile := findConfigFile(cfgFile)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file %s does not exist", cfgFile)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		cb := func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, cb), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// Env vars deliver list values as one comma-joined string.
	cfg.Augment = splitList(cfg.Augment)
	cfg.File = configFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfigFile picks the config file to read. An explicit path wins;
// otherwise terraclass.yaml then terraclass.yml in the working
// directory. Empty means run on defaults.
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// splitList splays comma-joined entries into separate values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// envKey maps TERRACLASS_FOREST_TREES to forest.trees and everything
// else to its flat snake_case key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "forest_"); ok {
		return "forest." + rest
	}
	return key
}

// flagKey maps kebab-case flag names to config keys. Forest
// hyperparameter flags are flat on the command line but nested in the
// config, and the output path flags drop their _path suffix.
func flagKey(name string) string {
	key := strings.ReplaceAll(name, "-", "_")
	switch key {
	case "trees", "max_depth", "min_samples_split", "min_samples_leaf",
		"criterion", "max_features", "bootstrap":
		return "forest." + key
	case "model":
		return "model_path"
	case "dot":
		return "dot_path"
	case "montage":
		return "montage_path"
	case "state":
		return "state_path"
	case "addr":
		return "serve_addr"
	}
	return key
}
