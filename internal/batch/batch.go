// Package batch submits transfer intents through a chain node and reports each
// transfer's lifecycle as a stream of events.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/0xjunha/apt-reward-script/internal/chain"
	"github.com/0xjunha/apt-reward-script/internal/event"
	"github.com/0xjunha/apt-reward-script/internal/metrics"
	"github.com/0xjunha/apt-reward-script/internal/payload"
)

// ErrNoResponse marks intents the submitter never answered.
var ErrNoResponse = errors.New("no submission response")

const defaultMaxInFlight = 8

// Worker hands a whole batch to the node and follows every transaction to a
// committed outcome.
type Worker struct {
	node        chain.Node
	log         zerolog.Logger
	maxInFlight int
	limiter     *rate.Limiter
	now         func() time.Time
}

// Option configures Worker construction parameters.
type Option func(*Worker)

// WithMaxInFlight bounds how many confirmations are awaited at once.
func WithMaxInFlight(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxInFlight = n
		}
	}
}

// WithConfirmRate caps confirmation lookups per second. Zero disables pacing.
func WithConfirmRate(perSecond float64) Option {
	return func(w *Worker) {
		if perSecond <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewWorker builds a worker on top of node.
func NewWorker(node chain.Node, log zerolog.Logger, opts ...Option) *Worker {
	w := &Worker{
		node:        node,
		log:         log,
		maxInFlight: defaultMaxInFlight,
		limiter:     rate.NewLimiter(rate.Inf, 0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run submits every intent in one batch and returns the event stream. Each
// intent yields Sent then Executed or ExecutionFailed, or a single SendFailed.
// Exactly one Finished follows all of them, then the stream is closed.
func (w *Worker) Run(ctx context.Context, sender aptos.TransactionSigner, intents []payload.TransferIntent) <-chan event.Event {
	// two events per intent at most, plus Finished, so sends never block
	out := make(chan event.Event, 2*len(intents)+1)
	go func() {
		defer close(out)
		w.run(ctx, sender, intents, out)
	}()
	return out
}

func (w *Worker) run(ctx context.Context, sender aptos.TransactionSigner, intents []payload.TransferIntent, out chan<- event.Event) {
	emit := func(e event.Event) {
		e.At = w.now()
		out <- e
	}

	payloads := make([]aptos.TransactionPayload, 0, len(intents))
	positions := make([]int, 0, len(intents))
	for i, intent := range intents {
		p, err := intent.TransactionPayload()
		if err != nil {
			emit(failure(event.SendFailed, intent, "", err))
			continue
		}
		payloads = append(payloads, p)
		positions = append(positions, i)
	}

	answered := make([]bool, len(payloads))
	var sent, sendFailed int
	var group errgroup.Group
	group.SetLimit(w.maxInFlight)

	for sub := range w.node.Submit(ctx, sender, payloads) {
		if sub.Index < 0 || sub.Index >= len(payloads) || answered[sub.Index] {
			w.log.Warn().Int("index", sub.Index).Msg("ignoring unexpected submission response")
			continue
		}
		answered[sub.Index] = true
		intent := intents[positions[sub.Index]]
		if sub.Err != nil {
			sendFailed++
			emit(failure(event.SendFailed, intent, "", sub.Err))
			continue
		}
		sent++
		emit(event.Event{
			Kind:      event.Sent,
			Index:     intent.Index,
			Recipient: intent.Recipient,
			Hash:      sub.Hash,
			Message:   fmt.Sprintf("transfer to %s submitted: %s", intent.Recipient.String(), sub.Hash),
		})
		hash := sub.Hash
		group.Go(func() error {
			emit(w.confirm(ctx, intent, hash))
			return nil
		})
	}

	for i, ok := range answered {
		if ok {
			continue
		}
		err := ErrNoResponse
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrNoResponse, ctx.Err())
		}
		sendFailed++
		emit(failure(event.SendFailed, intents[positions[i]], "", err))
	}
	_ = group.Wait()

	emit(event.Event{
		Kind:    event.Finished,
		Index:   -1,
		Message: fmt.Sprintf("batch finished: %d transfers, %d sent, %d failed to send", len(intents), sent, sendFailed+len(intents)-len(payloads)),
	})
}

func (w *Worker) confirm(ctx context.Context, intent payload.TransferIntent, hash string) event.Event {
	if err := w.limiter.Wait(ctx); err != nil {
		return failure(event.ExecutionFailed, intent, hash, err)
	}
	start := w.now()
	receipt, err := w.node.Confirm(ctx, hash)
	metrics.ConfirmSeconds.Observe(w.now().Sub(start).Seconds())
	if err != nil {
		return failure(event.ExecutionFailed, intent, hash, err)
	}
	if !receipt.Success {
		return failure(event.ExecutionFailed, intent, hash, fmt.Errorf("vm status: %s", receipt.VMStatus))
	}
	return event.Event{
		Kind:      event.Executed,
		Index:     intent.Index,
		Recipient: intent.Recipient,
		Hash:      hash,
		Message:   fmt.Sprintf("transfer to %s executed: %s", intent.Recipient.String(), hash),
	}
}

func failure(kind event.Kind, intent payload.TransferIntent, hash string, err error) event.Event {
	verb := "failed to send"
	if kind == event.ExecutionFailed {
		verb = "failed to execute"
	}
	return event.Event{
		Kind:      kind,
		Index:     intent.Index,
		Recipient: intent.Recipient,
		Hash:      hash,
		Message:   fmt.Sprintf("transfer to %s %s: %v", intent.Recipient.String(), verb, err),
		Err:       err,
	}
}
