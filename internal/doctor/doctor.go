// Package doctor reports problems in a loaded leeroy configuration that
// loading alone does not catch.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/leeroy/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg        *config.Config
	configPath string
}

// New creates a Doctor. configPath is the YAML file the config came from,
// or empty when it was built from the environment alone.
func New(cfg *config.Config, configPath string) *Doctor {
	return &Doctor{cfg: cfg, configPath: configPath}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateBaseURLs(r)
	d.validateChannel(r)
	d.warnSharedTokens(r)
	d.warnShutdownTimeout(r)
	d.warnUnlocked(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateBaseURLs requires absolute http(s) URLs and warns on plain http,
// which would carry API tokens in the clear.
func (d *Doctor) validateBaseURLs(r *Result) {
	urls := []struct {
		field string
		value string
	}{
		{"slack.base_url", d.cfg.Slack.BaseURL},
		{"github.base_url", d.cfg.GitHub.BaseURL},
		{"circleci.base_url", d.cfg.CircleCI.BaseURL},
	}

	for _, u := range urls {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			d.addError(r, "upstream", u.field, fmt.Sprintf("%q is not an absolute http(s) URL", u.value))
			continue
		}
		if parsed.Scheme == "http" {
			d.addWarning(r, "upstream", u.field, "plain http sends API tokens unencrypted")
		}
	}
}

// validateChannel catches channel names that can never equal a
// name_normalized value, so every command would be refused.
func (d *Doctor) validateChannel(r *Result) {
	ch := d.cfg.Slack.DeploymentChannel
	if strings.HasPrefix(ch, "#") {
		d.addError(r, "slack", "slack.deployment_channel",
			fmt.Sprintf("channel %q must be given without the leading '#'", ch))
		return
	}
	if ch != strings.ToLower(ch) {
		d.addWarning(r, "slack", "slack.deployment_channel",
			fmt.Sprintf("channel %q has upper case letters; Slack channel names are lower case", ch))
	}
}

// warnSharedTokens flags the same secret configured for two services.
func (d *Doctor) warnSharedTokens(r *Result) {
	secrets := []struct {
		field string
		value string
	}{
		{"slack.signing_secret", d.cfg.Slack.SigningSecret},
		{"slack.api_token", d.cfg.Slack.APIToken},
		{"github.api_token", d.cfg.GitHub.APIToken},
		{"circleci.api_token", d.cfg.CircleCI.APIToken},
	}

	seen := make(map[string]string, len(secrets))
	for _, s := range secrets {
		if s.value == "" {
			continue
		}
		if prev, ok := seen[s.value]; ok {
			d.addWarning(r, "secrets", s.field, fmt.Sprintf("same value as %s", prev))
			continue
		}
		seen[s.value] = s.field
	}
}

// warnShutdownTimeout flags shutdowns that would cut off a running trigger.
func (d *Doctor) warnShutdownTimeout(r *Result) {
	if d.cfg.Service.ShutdownTimeout < d.cfg.CircleCI.Timeout {
		d.addWarning(r, "service", "service.shutdown_timeout",
			fmt.Sprintf("shutdown_timeout %s is shorter than circleci.timeout %s; in-flight builds may be abandoned on shutdown",
				d.cfg.Service.ShutdownTimeout, d.cfg.CircleCI.Timeout))
	}
}

// warnUnlocked notes a config file without an integrity manifest.
func (d *Doctor) warnUnlocked(r *Result) {
	if d.configPath == "" {
		return
	}
	_, err := config.LoadChecksums(filepath.Dir(d.configPath))
	switch {
	case errors.Is(err, os.ErrNotExist):
		d.addWarning(r, "integrity", "", "config file is not locked; run 'leeroy config lock'")
	case err != nil:
		d.addError(r, "integrity", "", err.Error())
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}

	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
	} else {
		fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
	}
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
