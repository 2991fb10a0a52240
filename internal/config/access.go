package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RedactedValue replaces secrets in Redacted output.
const RedactedValue = "[redacted]"

// Redacted returns a copy of c with every secret masked. Unset secrets stay
// empty so a missing value is still visible.
func (c *Config) Redacted() *Config {
	out := *c
	for _, s := range []*string{
		&out.Slack.SigningSecret,
		&out.Slack.APIToken,
		&out.GitHub.APIToken,
		&out.CircleCI.APIToken,
	} {
		if *s != "" {
			*s = RedactedValue
		}
	}
	return &out
}

// GetPath retrieves a value from the redacted configuration using a
// dot-notation path such as "circleci.job". An empty path returns everything.
func (c *Config) GetPath(path string) (any, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return getValue(m, path)
}

func getValue(m map[string]any, path string) (any, error) {
	var current any = m

	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}

		node, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}

		val, exists := node[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}

	return current, nil
}
