package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/leeroy/internal/auth"
	"github.com/mattjoyce/leeroy/internal/circleci"
	"github.com/mattjoyce/leeroy/internal/config"
	"github.com/mattjoyce/leeroy/internal/dispatch"
	"github.com/mattjoyce/leeroy/internal/lock"
	"github.com/mattjoyce/leeroy/internal/log"
	"github.com/mattjoyce/leeroy/internal/scm"
	"github.com/mattjoyce/leeroy/internal/slack"
	"github.com/mattjoyce/leeroy/internal/webhook"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Start the relay in the foreground",
		Example: "  leeroy serve --config leeroy.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath, cmd.ErrOrStderr())
		},
	}
}

// loadConfig loads the configuration, printing one line per missing
// variable when required settings are absent.
func loadConfig(configPath string, stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			for _, msg := range missing.Messages() {
				fmt.Fprintln(stderr, msg)
			}
			return nil, exitCode(1)
		}
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, configPath string, stderr io.Writer) error {
	cfg, err := loadConfig(configPath, stderr)
	if err != nil {
		return err
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("leeroy starting",
		"version", version,
		"repo", cfg.GitHub.Slug(),
		"channel", cfg.Slack.DeploymentChannel,
	)

	if cfg.Service.PIDFile != "" {
		pidLock, err := lock.AcquirePIDLock(cfg.Service.PIDFile)
		if err != nil {
			logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.Service.PIDFile, "error", err)
			return exitCode(1)
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", pidLock.Path())
	}

	server, err := buildServer(cfg)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		return exitCode(1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server failed", "error", err)
		return exitCode(1)
	}
	logger.Info("leeroy stopped")
	return nil
}

// buildServer wires every component from the loaded configuration.
func buildServer(cfg *config.Config) (*webhook.Server, error) {
	slackClient := &slack.Client{
		Token:   cfg.Slack.APIToken,
		BaseURL: cfg.Slack.BaseURL,
		Timeout: cfg.Slack.Timeout,
	}
	gate := auth.NewChannelGate(slackClient, cfg.Slack.DeploymentChannel, log.WithComponent("auth"))

	branches, err := scm.NewClient(scm.Options{
		Token:        cfg.GitHub.APIToken,
		Organization: cfg.GitHub.Organization,
		Repo:         cfg.GitHub.Repo,
		BaseURL:      cfg.GitHub.BaseURL,
		PerPage:      cfg.GitHub.PerPage,
		Timeout:      cfg.GitHub.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	builds := circleci.NewClient(circleci.Options{
		Token:        cfg.CircleCI.APIToken,
		BaseURL:      cfg.CircleCI.BaseURL,
		Organization: cfg.GitHub.Organization,
		Repo:         cfg.GitHub.Repo,
		Job:          cfg.CircleCI.Job,
		Environment:  cfg.CircleCI.Environment,
		TriggeredBy:  cfg.CircleCI.TriggeredBy,
		Timeout:      cfg.CircleCI.Timeout,
	}, nil, log.WithComponent("circleci"))

	dispatcher := dispatch.New(branches, builds, dispatch.Options{
		Repo:           cfg.GitHub.Slug(),
		TriggerTimeout: cfg.CircleCI.Timeout,
	}, log.WithComponent("dispatch"))

	logger := log.WithComponent("webhook")
	return webhook.New(webhook.Config{
		Listen:          cfg.Service.Listen,
		MaxBodySize:     cfg.Service.MaxBodySize,
		ShutdownTimeout: cfg.Service.ShutdownTimeout,
	}, webhook.NewVerifier(cfg.Slack.SigningSecret, logger), gate, dispatcher, logger), nil
}
