package main

import (
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xjunha/apt-reward-script/internal/config"
	"github.com/0xjunha/apt-reward-script/internal/distribute"
	"github.com/0xjunha/apt-reward-script/internal/metrics"
	"github.com/0xjunha/apt-reward-script/internal/util"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

type rootFlags struct {
	configPath    string
	network       string
	nodeURL       string
	addresses     string
	amount        uint64
	logLevel      string
	logFormat     string
	metricsAddr   string
	journal       string
	failOnPartial bool
	requireFunds  bool
}

func execute(args []string, opts ...distribute.Option) int {
	root := newRootCmd(opts...)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code == exitPartial {
			fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		}
		return ee.code
	}
	fmt.Fprintln(root.ErrOrStderr(), "error:", err)
	return exitFatal
}

func newRootCmd(opts ...distribute.Option) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "distribute",
		Short:         "Send a fixed APT reward to every address in a file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runDistribution(cmd, cfg, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file (defaults apply when empty)")
	f := root.Flags()
	f.StringVar(&flags.network, "network", "", "aptos network: testnet, mainnet, devnet or localnet")
	f.StringVar(&flags.nodeURL, "node-url", "", "override the network's REST endpoint")
	f.StringVar(&flags.addresses, "addresses", "", "file with one recipient address per line")
	f.Uint64Var(&flags.amount, "amount", 0, "octas sent to each recipient")
	f.StringVar(&flags.logLevel, "log-level", "", "trace, debug, info, warn or error")
	f.StringVar(&flags.logFormat, "log-format", "", "console or json")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve prometheus /metrics on this address")
	f.StringVar(&flags.journal, "journal", "", "append lifecycle events to this JSONL file")
	f.BoolVar(&flags.failOnPartial, "fail-on-partial", false, "exit 2 when any transfer failed")
	f.BoolVar(&flags.requireFunds, "require-funds", false, "abort when the admin balance does not cover the batch")

	root.AddCommand(newConfigCmd(flags))
	return root
}

// loadConfig layers the YAML file, .env and environment overrides, then flags.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadDotEnv()
	cfg.ApplyEnv(os.Getenv)

	changed := cmd.Flags().Changed
	if changed("network") {
		cfg.Network.Name = flags.network
	}
	if changed("node-url") {
		cfg.Network.NodeURL = flags.nodeURL
	}
	if changed("addresses") {
		cfg.Distribution.AddressesFile = flags.addresses
	}
	if changed("amount") {
		cfg.Distribution.AmountOctas = flags.amount
	}
	if changed("log-level") {
		cfg.App.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.App.LogFormat = flags.logFormat
	}
	if changed("metrics-addr") {
		cfg.App.MetricsAddr = flags.metricsAddr
	}
	if changed("journal") {
		cfg.Distribution.JournalPath = flags.journal
	}
	if changed("fail-on-partial") {
		cfg.Distribution.FailOnPartial = flags.failOnPartial
	}
	if changed("require-funds") {
		cfg.Distribution.RequireFunds = flags.requireFunds
	}
	return cfg, cfg.Validate()
}

func runDistribution(cmd *cobra.Command, cfg *config.Config, opts []distribute.Option) error {
	log := util.NewLoggerTo(cmd.OutOrStdout(), cfg.App.LogLevel, cfg.App.LogFormat)

	if cfg.App.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.App.MetricsAddr, log)
		if err != nil {
			log.Warn().Err(err).Msg("metrics disabled")
		} else {
			defer srv.Close()
			log.Info().Str("addr", srv.Addr).Msg("metrics up")
		}
	}

	ctx, cancel := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := distribute.NewRunner(cfg, log, opts...)
	log.Info().Str("app", cfg.App.Name).Str("network", cfg.Network.Name).Msg("distribution started")

	summary, err := runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("distribution aborted")
		return &exitError{code: exitFatal, err: err}
	}
	for _, f := range summary.Failures {
		log.Warn().Str("kind", string(f.Kind)).Int("index", f.Index).Str("recipient", f.Recipient.String()).Msg("transfer not executed")
	}
	if summary.Partial() && cfg.Distribution.FailOnPartial {
		return &exitError{
			code: exitPartial,
			err:  fmt.Errorf("%d of %d transfers failed", summary.Failed(), summary.Intents),
		}
	}
	return nil
}
