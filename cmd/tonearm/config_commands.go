package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tonearm/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set spotify client_id and client_secret before running Tonearm.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, configSummary(cfg, path, exists))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file does not exist; showing defaults")
			}
			fmt.Fprintf(out, "Staging directory: %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "Library directory: %s\n", cfg.Paths.LibraryDir)
			fmt.Fprintf(out, "Log directory: %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "API bind: %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "API token: %s\n", setOrNot(cfg.Paths.APIToken))
			fmt.Fprintf(out, "Spotify credentials: %s\n", setOrNot(cfg.Spotify.ClientID+cfg.Spotify.ClientSecret))
			fmt.Fprintf(out, "Audio format: %s (quality %s)\n", cfg.Fetch.AudioFormat, cfg.Fetch.AudioQuality)
			fmt.Fprintf(out, "Ntfy topic: %s\n", setOrNot(cfg.Notifications.NtfyTopic))
			fmt.Fprintf(out, "Log level: %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
			fmt.Fprintf(out, "Log retention days: %d\n", cfg.Logging.RetentionDays)
			return nil
		},
	}
}

// configSummary keeps secrets out of machine-readable output while still
// reporting whether they are set.
func configSummary(cfg *config.Config, path string, exists bool) map[string]any {
	return map[string]any{
		"path":              path,
		"exists":            exists,
		"stagingDir":        cfg.Paths.StagingDir,
		"libraryDir":        cfg.Paths.LibraryDir,
		"logDir":            cfg.Paths.LogDir,
		"apiBind":           cfg.Paths.APIBind,
		"apiTokenSet":       strings.TrimSpace(cfg.Paths.APIToken) != "",
		"spotifySet":        strings.TrimSpace(cfg.Spotify.ClientID) != "" && strings.TrimSpace(cfg.Spotify.ClientSecret) != "",
		"audioFormat":       cfg.Fetch.AudioFormat,
		"audioQuality":      cfg.Fetch.AudioQuality,
		"ntfyTopicSet":      strings.TrimSpace(cfg.Notifications.NtfyTopic) != "",
		"logLevel":          cfg.Logging.Level,
		"logFormat":         cfg.Logging.Format,
		"logRetentionDays":  cfg.Logging.RetentionDays,
		"queuePollInterval": cfg.Workflow.QueuePollInterval,
	}
}

func setOrNot(value string) string {
	if strings.TrimSpace(value) != "" {
		return "set"
	}
	return "not set"
}
