// Package distribute runs one reward distribution end to end.
package distribute

import (
	"context"
	"fmt"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/0xjunha/apt-reward-script/internal/batch"
	"github.com/0xjunha/apt-reward-script/internal/chain"
	"github.com/0xjunha/apt-reward-script/internal/config"
	"github.com/0xjunha/apt-reward-script/internal/journal"
	"github.com/0xjunha/apt-reward-script/internal/lifecycle"
	"github.com/0xjunha/apt-reward-script/internal/metrics"
	"github.com/0xjunha/apt-reward-script/internal/payload"
	"github.com/0xjunha/apt-reward-script/internal/recipients"
	"github.com/0xjunha/apt-reward-script/internal/risk"
)

// Dialer constructs the node a run talks to.
type Dialer func(network aptos.NetworkConfig, opts ...chain.Option) (chain.Node, error)

// KeySource returns the hex admin private key.
type KeySource func() (string, error)

func dialAptos(network aptos.NetworkConfig, opts ...chain.Option) (chain.Node, error) {
	node, err := chain.Dial(network, opts...)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Runner wires configuration, the address file, the node and the lifecycle
// controller for a single batch.
type Runner struct {
	cfg   *config.Config
	log   zerolog.Logger
	dial  Dialer
	key   KeySource
	runID string
}

// Option configures Runner construction parameters.
type Option func(*Runner)

// WithDialer replaces the Aptos client constructor.
func WithDialer(d Dialer) Option {
	return func(r *Runner) { r.dial = d }
}

// WithKeySource replaces reading ADMIN_PRIVATE_KEY from the environment.
func WithKeySource(k KeySource) Option {
	return func(r *Runner) { r.key = k }
}

// WithRunID fixes the run identifier stamped on logs and journal entries.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// NewRunner builds a runner for cfg.
func NewRunner(cfg *config.Config, log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:  cfg,
		dial: dialAptos,
		key:  config.LoadAdminKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.log = log.With().Str("run_id", r.runID).Logger()
	return r
}

// Run distributes the configured amount to every address in the file. Every
// setup failure returns before anything is submitted. Individual transfer
// failures are reported in the Summary, not as an error.
func (r *Runner) Run(ctx context.Context) (lifecycle.Summary, error) {
	if err := r.cfg.Validate(); err != nil {
		return lifecycle.Summary{}, err
	}
	hexKey, err := r.key()
	if err != nil {
		return lifecycle.Summary{}, err
	}
	admin, err := chain.AdminAccount(hexKey)
	if err != nil {
		return lifecycle.Summary{}, &config.Error{Key: config.AdminKeyEnv, Reason: err.Error()}
	}
	network, err := chain.ResolveNetwork(r.cfg.Network.Name, r.cfg.Network.NodeURL)
	if err != nil {
		return lifecycle.Summary{}, &config.Error{Key: "network.name", Reason: err.Error()}
	}

	path := r.cfg.AddressesPath()
	addrs, err := recipients.Load(ctx, path)
	if err != nil {
		return lifecycle.Summary{}, err
	}
	for _, dup := range recipients.Duplicates(addrs) {
		r.log.Warn().Str("recipient", dup.Address.String()).Int("count", dup.Count).Msg("duplicate recipient will receive multiple transfers")
	}
	intents := payload.Build(addrs, r.cfg.Distribution.AmountOctas)
	r.log.Info().
		Str("file", path).
		Int("transfers", len(intents)).
		Uint64("amount_octas", r.cfg.Distribution.AmountOctas).
		Str("function", payload.Function).
		Msg("transfers loaded")

	node, err := r.dial(network, chain.WithConfirmTimeout(r.cfg.ConfirmTimeout()))
	if err != nil {
		return lifecycle.Summary{}, err
	}
	if err := r.checkFunds(ctx, node, admin.Address, intents); err != nil {
		return lifecycle.Summary{}, err
	}

	opts := []lifecycle.Option{lifecycle.WithIntents(len(intents))}
	if p := r.cfg.JournalPath(); p != "" {
		recorder, err := journal.NewJSONLRecorder(p, r.runID)
		if err != nil {
			return lifecycle.Summary{}, fmt.Errorf("open journal: %w", err)
		}
		defer recorder.Close()
		opts = append(opts, lifecycle.WithRecorder(recorder))
	}

	metrics.IntentsTotal.WithLabelValues(r.cfg.Network.Name).Add(float64(len(intents)))
	worker := batch.NewWorker(node, r.log,
		batch.WithMaxInFlight(r.cfg.Distribution.MaxInFlight),
		batch.WithConfirmRate(r.cfg.Distribution.ConfirmRate),
	)
	events := worker.Run(ctx, admin, intents)

	controller := lifecycle.NewController(node, admin.Address, r.log, opts...)
	return controller.Consume(ctx, events)
}

func (r *Runner) checkFunds(ctx context.Context, node chain.Node, admin aptos.AccountAddress, intents []payload.TransferIntent) error {
	balance, err := node.Balance(ctx, admin)
	if err != nil {
		return err
	}
	r.log.Info().Str("admin", admin.String()).Uint64("balance_octas", balance).Msg("admin balance")

	required, err := risk.Required(len(intents), r.cfg.Distribution.AmountOctas)
	if err != nil {
		return err
	}
	limits := risk.Limits{Balance: balance}
	if limits.Allow(required) {
		return nil
	}
	r.log.Warn().
		Uint64("balance_octas", balance).
		Uint64("required_octas", required).
		Uint64("shortfall_octas", limits.Shortfall(required)).
		Msg("admin balance does not cover the batch")
	if r.cfg.Distribution.RequireFunds {
		return &risk.InsufficientFundsError{Balance: balance, Required: required}
	}
	return nil
}
