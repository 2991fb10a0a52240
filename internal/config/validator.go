package config

import (
	"fmt"
	"strings"
)

// Required environment variables, in the order they are reported.
const (
	EnvSlackSigningSecret = "SLACK_SIGNING_SECRET"
	EnvSlackAPIToken      = "SLACK_API_TOKEN"
	EnvDeploymentChannel  = "DEPLOYMENT_CHANNEL"
	EnvGitHubAPIToken     = "GITHUB_API_TOKEN"
	EnvGitHubOrganization = "GITHUB_ORGANIZATION"
	EnvGitHubRepo         = "GITHUB_REPO"
	EnvCircleAPIToken     = "CIRCLE_API_TOKEN"
)

// Optional overrides.
const (
	EnvConfigPath = "LEEROY_CONFIG"
	EnvListenAddr = "LISTEN_ADDR"
	EnvLogLevel   = "LOG_LEVEL"
)

// MissingError lists every required setting that ended up empty.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Vars, ", ")
}

// Messages returns one operator-facing line per missing variable.
func (e *MissingError) Messages() []string {
	out := make([]string, 0, len(e.Vars))
	for _, v := range e.Vars {
		out = append(out, fmt.Sprintf("You must export a %s environment variable.", v))
	}
	return out
}

// requiredFields maps each required env var onto the config field it fills.
func requiredFields(cfg *Config) []struct {
	env   string
	field *string
} {
	return []struct {
		env   string
		field *string
	}{
		{EnvSlackSigningSecret, &cfg.Slack.SigningSecret},
		{EnvSlackAPIToken, &cfg.Slack.APIToken},
		{EnvDeploymentChannel, &cfg.Slack.DeploymentChannel},
		{EnvGitHubAPIToken, &cfg.GitHub.APIToken},
		{EnvGitHubOrganization, &cfg.GitHub.Organization},
		{EnvGitHubRepo, &cfg.GitHub.Repo},
		{EnvCircleAPIToken, &cfg.CircleCI.APIToken},
	}
}

// validate checks required values first, then the optional ones.
func validate(cfg *Config) error {
	var missing []string
	for _, f := range requiredFields(cfg) {
		if strings.TrimSpace(*f.field) == "" || envVarPattern.MatchString(*f.field) {
			missing = append(missing, f.env)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if f := strings.ToLower(cfg.Service.LogFormat); f != "json" && f != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}
	if cfg.Service.Listen == "" {
		return fmt.Errorf("service.listen must not be empty")
	}
	if cfg.Service.MaxBodySize <= 0 {
		return fmt.Errorf("service.max_body_size must be positive")
	}
	if cfg.GitHub.PerPage <= 0 || cfg.GitHub.PerPage > 100 {
		return fmt.Errorf("github.per_page must be between 1 and 100 (got %d)", cfg.GitHub.PerPage)
	}

	timeouts := map[string]int64{
		"slack.timeout":    int64(cfg.Slack.Timeout),
		"github.timeout":   int64(cfg.GitHub.Timeout),
		"circleci.timeout": int64(cfg.CircleCI.Timeout),
	}
	for name, v := range timeouts {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.CircleCI.Job == "" || cfg.CircleCI.TriggeredBy == "" {
		return fmt.Errorf("circleci.job and circleci.triggered_by must not be empty")
	}
	return nil
}
