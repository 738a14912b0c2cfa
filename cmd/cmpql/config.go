package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wildfly/cmpql/runner"
)

const envPrefix = "CMPQL"

// Config is the merged CLI configuration. Sources in decreasing
// priority: flags, CMPQL_* environment variables (including those from
// .env), the .cmpql.yaml file, defaults.
type Config struct {
	Dialect  string
	Catalog  string
	Dialects string // optional YAML file of custom dialects
	DSN      string
	MaxRows  int
	Verbose  bool
	// SoftDelete names the field restricted to NULL on every range
	// variable whose entity has it. Empty disables the filter.
	SoftDelete string
	// The OPA fields configure a server-side row policy. An empty
	// OPAURL disables it.
	OPAURL    string
	OPAPolicy string
	OPAInput  string // JSON object
	Format    string
	Pretty    bool
}

// loadConfig reads .env and the config file from fs and merges them with
// the environment and the flags in set.
func loadConfig(fs afero.Fs, set *pflag.FlagSet, configFile string) (*Config, error) {
	if err := loadDotEnv(fs, ".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("dsn", envPrefix+"_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	v.SetDefault("dialect", "postgres")
	v.SetDefault("max-rows", runner.DefaultMaxRows)
	v.SetDefault("format", "text")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".cmpql")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if set != nil {
		if err := v.BindPFlags(set); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	cfg := &Config{
		Dialect:    v.GetString("dialect"),
		Catalog:    v.GetString("catalog"),
		Dialects:   v.GetString("dialects"),
		DSN:        v.GetString("dsn"),
		MaxRows:    v.GetInt("max-rows"),
		Verbose:    v.GetBool("verbose"),
		SoftDelete: v.GetString("soft-delete"),
		OPAURL:     v.GetString("opa-url"),
		OPAPolicy:  v.GetString("opa-policy"),
		OPAInput:   v.GetString("opa-input"),
		Format:     v.GetString("format"),
		Pretty:     v.GetBool("pretty"),
	}
	if !isValidFormat(cfg.Format) {
		return nil, fmt.Errorf("config: invalid format %q: must be one of %v", cfg.Format, validFormats)
	}
	return cfg, nil
}

// loadDotEnv exports the variables of a .env file that are not already
// set in the process environment. A missing file is not an error.
func loadDotEnv(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()

	env, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	for k, val := range env {
		if _, ok := os.LookupEnv(k); !ok {
			if err := os.Setenv(k, val); err != nil {
				return fmt.Errorf("config: %w", err)
			}
		}
	}
	return nil
}

var validFormats = []string{"text", "json"}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
