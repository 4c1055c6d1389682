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
	"github.com/nao1215/tabql"
	"github.com/spf13/pflag"
)

// envPrefix prefixes environment variables, e.g. TABQL_CHUNK_SIZE.
const envPrefix = "TABQL_"

// defaultConfigFiles are looked up in the working directory when no
// config file is given.
var defaultConfigFiles = []string{"tabql.yaml", "tabql.yml"}

// FindConfigFile returns the config file to load.
// Priority: explicit path > tabql.yaml > tabql.yml
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range defaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load merges defaults, the config file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
// Only flags that were explicitly set override other layers. It returns
// the config file used, if any.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"delimiter":  DefaultDelimiter,
		"encoding":   DefaultEncoding,
		"chunk_size": tabql.DefaultBatchSize,
		"fetch_size": tabql.DefaultFetchSize,
		"skip":       0,
		"log_level":  DefaultLogLevel,
		"log_format": DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := FindConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: TABQL_CHUNK_SIZE -> chunk_size
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if f.Value.Type() == "stringArray" {
				v, _ := flags.GetStringArray(f.Name)
				return key, v
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	// Negative skip counts clamp to zero.
	cfg.Skip = max(cfg.Skip, 0)
	return &cfg, used, nil
}
