// Package lifecycle consumes a batch's event stream until it finishes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/rs/zerolog"

	"github.com/0xjunha/apt-reward-script/internal/event"
	"github.com/0xjunha/apt-reward-script/internal/metrics"
)

// ErrUnfinished is returned when the stream closes before a Finished event.
var ErrUnfinished = errors.New("event stream closed before batch finished")

// SequenceReader looks up an account's current sequence number.
type SequenceReader interface {
	SequenceNumber(ctx context.Context, addr aptos.AccountAddress) (uint64, error)
}

// Recorder receives every consumed event, e.g. a journal file.
type Recorder interface {
	Record(e event.Event)
}

// Summary tallies one consumed batch.
type Summary struct {
	Intents         int
	Sent            int
	Executed        int
	SendFailed      int
	ExecutionFailed int
	SequenceNumber  uint64
	Failures        []event.Event
}

// Failed counts transfers that did not execute.
func (s Summary) Failed() int { return s.SendFailed + s.ExecutionFailed }

// Partial reports whether any transfer failed.
func (s Summary) Partial() bool { return s.Failed() > 0 }

// Controller logs lifecycle events and performs the final sequence check.
type Controller struct {
	seq      SequenceReader
	admin    aptos.AccountAddress
	log      zerolog.Logger
	recorder Recorder
	intents  int
}

// Option configures Controller construction parameters.
type Option func(*Controller)

// WithRecorder tees every event into r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithIntents sets the batch size reported in the Summary.
func WithIntents(n int) Option {
	return func(c *Controller) { c.intents = n }
}

// NewController builds a controller that checks admin's sequence number on Finished.
func NewController(seq SequenceReader, admin aptos.AccountAddress, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{seq: seq, admin: admin, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Consume dispatches events until Finished, then looks up the admin sequence
// number once and returns. Events after Finished are not read.
func (c *Controller) Consume(ctx context.Context, events <-chan event.Event) (Summary, error) {
	summary := Summary{Intents: c.intents}
	for {
		var e event.Event
		var ok bool
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case e, ok = <-events:
		}
		if !ok {
			return summary, ErrUnfinished
		}

		metrics.EventsTotal.WithLabelValues(string(e.Kind)).Inc()
		if c.recorder != nil {
			c.recorder.Record(e)
		}
		if e.Failed() {
			summary.Failures = append(summary.Failures, e)
		}

		switch e.Kind {
		case event.Sent:
			summary.Sent++
			c.log.Debug().Int("index", e.Index).Str("hash", e.Hash).Msg(e.Message)
		case event.Executed:
			summary.Executed++
			c.log.Info().Int("index", e.Index).Str("hash", e.Hash).Msg(e.Message)
		case event.SendFailed:
			summary.SendFailed++
			c.log.Warn().Int("index", e.Index).Err(e.Err).Msg(e.Message)
		case event.ExecutionFailed:
			summary.ExecutionFailed++
			c.log.Warn().Int("index", e.Index).Str("hash", e.Hash).Err(e.Err).Msg(e.Message)
		case event.Finished:
			c.log.Info().Msg(e.Message)
			seq, err := c.seq.SequenceNumber(ctx, c.admin)
			if err != nil {
				return summary, fmt.Errorf("final sequence number: %w", err)
			}
			summary.SequenceNumber = seq
			c.log.Info().
				Str("admin", c.admin.String()).
				Uint64("sequence_number", seq).
				Int("executed", summary.Executed).
				Int("failed", summary.Failed()).
				Msg("batch complete")
			return summary, nil
		default:
			c.log.Warn().Str("kind", string(e.Kind)).Msg("unknown lifecycle event")
		}
	}
}
