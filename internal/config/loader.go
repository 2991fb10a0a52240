package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DefaultEnvFile is read, when present, beneath the real environment.
const DefaultEnvFile = ".env"

// lookupFunc resolves a variable name to its value.
type lookupFunc func(key string) (string, bool)

// Load builds the configuration from an optional YAML file, an optional .env
// file in the working directory and the process environment, in increasing
// order of precedence. configPath may be empty; LEEROY_CONFIG is consulted
// then.
func Load(configPath string) (*Config, error) {
	return LoadFrom(configPath, DefaultEnvFile)
}

// LoadFrom is Load with an explicit .env path. An empty envFile skips it.
func LoadFrom(configPath, envFile string) (*Config, error) {
	lookup, err := newLookup(envFile)
	if err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath, _ = lookup(EnvConfigPath)
	}

	cfg := Defaults()
	if configPath != "" {
		if err := loadConfigFile(cfg, configPath, lookup); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg, lookup)

	if err := validate(cfg); err != nil {
		var missing *MissingError
		if errors.As(err, &missing) {
			return nil, missing
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newLookup layers the process environment over the .env file without
// mutating the environment itself. An exported but empty variable counts as
// unset, so .env still fills it.
func newLookup(envFile string) (lookupFunc, error) {
	dotenv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, fs.ErrNotExist):
			// optional
		default:
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func loadConfigFile(cfg *Config, configPath string, lookup lookupFunc) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if err := VerifyLock(absPath); err != nil {
		return err
	}

	expanded := interpolateEnv(string(data), lookup)
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(absPath), err)
	}
	return nil
}

// applyEnv lets the environment override whatever the file set.
func applyEnv(cfg *Config, lookup lookupFunc) {
	for _, f := range requiredFields(cfg) {
		if v, ok := lookup(f.env); ok && strings.TrimSpace(v) != "" {
			*f.field = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		cfg.Service.Listen = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Service.LogLevel = strings.ToLower(v)
	}
}

// interpolateEnv replaces ${VAR} references with their values.
func interpolateEnv(input string, lookup lookupFunc) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR}
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := lookup(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}
