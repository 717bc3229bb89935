package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xjunha/apt-reward-script/internal/config"
)

const defaultConfigPath = "config.yaml"

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the run configuration",
	}
	cmd.AddCommand(newConfigShowCmd(flags), newConfigInitCmd(flags))
	return cmd
}

func newConfigShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func newConfigInitCmd(flags *rootFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.configPath
			if path == "" {
				path = defaultConfigPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func printSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "--- Configuration Summary ---")
	fmt.Fprintf(w, "Network: %s\n", cfg.Network.Name)
	if cfg.Network.NodeURL != "" {
		fmt.Fprintf(w, "Node URL: %s\n", cfg.Network.NodeURL)
	}
	fmt.Fprintf(w, "Addresses file: %s\n", cfg.AddressesPath())
	fmt.Fprintf(w, "Amount per recipient: %d octas (%.8f APT)\n", cfg.Distribution.AmountOctas, float64(cfg.Distribution.AmountOctas)/1e8)
	fmt.Fprintf(w, "Confirmations: %d in flight, %.2f/s, %s timeout\n", cfg.Distribution.MaxInFlight, cfg.Distribution.ConfirmRate, cfg.ConfirmTimeout())
	fmt.Fprintf(w, "Require funds: %t | fail on partial: %t\n", cfg.Distribution.RequireFunds, cfg.Distribution.FailOnPartial)
	if p := cfg.JournalPath(); p != "" {
		fmt.Fprintf(w, "Journal: %s\n", p)
	}
	if cfg.App.MetricsAddr != "" {
		fmt.Fprintf(w, "Metrics: %s\n", cfg.App.MetricsAddr)
	}
	fmt.Fprintf(w, "Logging: %s (%s)\n", cfg.App.LogLevel, cfg.App.LogFormat)
}
