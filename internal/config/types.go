package config

import "time"

// Config represents the complete leeroy configuration.
// It is built once at startup and passed by value from then on.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Slack    SlackConfig    `yaml:"slack"`
	GitHub   GitHubConfig   `yaml:"github"`
	CircleCI CircleCIConfig `yaml:"circleci"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name            string        `yaml:"name"`
	Listen          string        `yaml:"listen"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	MaxBodySize     int64         `yaml:"max_body_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// PIDFile, when set, holds a single-instance lock while serving.
	PIDFile string `yaml:"pid_file"`
}

// SlackConfig holds the chat platform side: request signing and the
// channel lookup used by the authorization gate.
type SlackConfig struct {
	SigningSecret     string        `yaml:"signing_secret"`
	APIToken          string        `yaml:"api_token"`
	DeploymentChannel string        `yaml:"deployment_channel"`
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
}

// GitHubConfig identifies the repository whose branches are offered.
type GitHubConfig struct {
	APIToken     string        `yaml:"api_token"`
	Organization string        `yaml:"organization"`
	Repo         string        `yaml:"repo"`
	BaseURL      string        `yaml:"base_url"` // empty means api.github.com
	PerPage      int           `yaml:"per_page"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CircleCIConfig defines how builds are triggered.
type CircleCIConfig struct {
	APIToken    string        `yaml:"api_token"`
	BaseURL     string        `yaml:"base_url"`
	Job         string        `yaml:"job"`
	Environment string        `yaml:"environment"`
	TriggeredBy string        `yaml:"triggered_by"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Slug returns "org/repo".
func (g GitHubConfig) Slug() string {
	return g.Organization + "/" + g.Repo
}

// Defaults returns a Config with every optional value filled in.
// Required secrets and identifiers are left empty.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:            "leeroy",
			Listen:          ":8000",
			LogLevel:        "info",
			LogFormat:       "json",
			MaxBodySize:     1048576, // 1 MB
			ShutdownTimeout: 10 * time.Second,
		},
		Slack: SlackConfig{
			BaseURL: "https://slack.com",
			Timeout: 10 * time.Second,
		},
		GitHub: GitHubConfig{
			PerPage: 100,
			Timeout: 10 * time.Second,
		},
		CircleCI: CircleCIConfig{
			BaseURL:     "https://circleci.com",
			Job:         "build",
			Environment: "qa",
			TriggeredBy: "leeroy",
			Timeout:     10 * time.Second,
		},
	}
}
