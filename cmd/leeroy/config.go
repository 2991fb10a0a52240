package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/leeroy/internal/config"
	"github.com/mattjoyce/leeroy/internal/doctor"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and lock the configuration",
	}
	cmd.AddCommand(newConfigCheckCmd(configPath))
	cmd.AddCommand(newConfigLockCmd(configPath))
	cmd.AddCommand(newConfigShowCmd(configPath))
	return cmd
}

func newConfigShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "show [path]",
		Short:   "Print the effective configuration with secrets redacted",
		Example: "  leeroy config show\n" +
			"  leeroy config show circleci.job",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			value, err := cfg.GetPath(path)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshal %q: %w", path, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newConfigCheckCmd(configPath *string) *cobra.Command {
	var strict bool
	var format string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the configuration and report problems",
		Long: "Loads the configuration exactly as serve would, then reports errors and warnings. " +
			"Exit status is 1 on errors, 2 on warnings with --strict.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			path := *configPath
			if path == "" {
				path = os.Getenv(config.EnvConfigPath)
			}
			result := doctor.New(cfg, path).Validate()

			switch format {
			case "json":
				out, err := doctor.FormatJSON(result)
				if err != nil {
					return fmt.Errorf("format report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			case "human":
				fmt.Fprint(cmd.OutOrStdout(), doctor.FormatHuman(result))
			default:
				return fmt.Errorf("unknown format %q (want human or json)", format)
			}

			if !result.Valid {
				return exitCode(1)
			}
			if strict && len(result.Warnings) > 0 {
				return exitCode(2)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().StringVar(&format, "format", "human", "Output format (human, json)")
	return cmd
}

func newConfigLockCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Record the config file's BLAKE3 hash in " + config.ChecksumFile,
		Long: "Writes the hash of the config file to " + config.ChecksumFile + " beside it. " +
			"Once locked, serve refuses to start if the file changes until it is locked again.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := *configPath
			if path == "" {
				path = os.Getenv(config.EnvConfigPath)
			}
			if path == "" {
				return errors.New("no config file: use --config or set " + config.EnvConfigPath)
			}

			report, err := config.Lock(path, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Written {
				fmt.Fprintf(out, "Locked %s\n", report.ConfigPath)
			} else {
				fmt.Fprintf(out, "Would lock %s\n", report.ConfigPath)
			}
			fmt.Fprintf(out, "  blake3: %s\n  manifest: %s\n", report.Hash, report.ChecksumPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the hash without writing "+config.ChecksumFile)
	return cmd
}
