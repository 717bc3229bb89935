package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/api"
)

// Submission is the SDK's answer for one payload of a batch. Index is the
// payload's position in the slice handed to Submit.
type Submission struct {
	Index int
	Hash  string
	Err   error
}

// Receipt is the committed outcome of a submitted transaction.
type Receipt struct {
	Hash     string
	Success  bool
	VMStatus string
}

// Node is everything a distribution run needs from the network.
type Node interface {
	Balance(ctx context.Context, addr aptos.AccountAddress) (uint64, error)
	SequenceNumber(ctx context.Context, addr aptos.AccountAddress) (uint64, error)
	// Submit hands all payloads to the SDK batch worker, which owns sequence
	// numbers and submission. Each payload is answered at most once; the
	// returned channel is closed once the worker is done or ctx is done.
	Submit(ctx context.Context, sender aptos.TransactionSigner, payloads []aptos.TransactionPayload) <-chan Submission
	Confirm(ctx context.Context, hash string) (Receipt, error)
}

var _ Node = (*AptosNode)(nil)

// AptosNode implements Node on top of an explicitly constructed SDK client.
type AptosNode struct {
	client         *aptos.Client
	confirmTimeout time.Duration
}

// Option configures AptosNode construction parameters.
type Option func(*AptosNode)

const defaultConfirmTimeout = 60 * time.Second

// WithConfirmTimeout bounds how long Confirm polls for a single transaction.
func WithConfirmTimeout(d time.Duration) Option {
	return func(n *AptosNode) {
		if d > 0 {
			n.confirmTimeout = d
		}
	}
}

// Dial builds a client for the given network. No request is made.
func Dial(network aptos.NetworkConfig, opts ...Option) (*AptosNode, error) {
	client, err := aptos.NewClient(network)
	if err != nil {
		return nil, fmt.Errorf("aptos client for %s: %w", network.Name, err)
	}
	n := &AptosNode{
		client:         client,
		confirmTimeout: defaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Balance returns the APT balance in octas.
func (n *AptosNode) Balance(ctx context.Context, addr aptos.AccountAddress) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	balance, err := n.client.AccountAPTBalance(addr)
	if err != nil {
		return 0, fmt.Errorf("apt balance of %s: %w", addr.String(), err)
	}
	return balance, nil
}

func (n *AptosNode) SequenceNumber(ctx context.Context, addr aptos.AccountAddress) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := n.client.Account(addr)
	if err != nil {
		return 0, fmt.Errorf("account %s: %w", addr.String(), err)
	}
	seq, err := info.SequenceNumber()
	if err != nil {
		return 0, fmt.Errorf("sequence number of %s: %w", addr.String(), err)
	}
	return seq, nil
}

// Submit hands the payloads to the SDK batch worker. The worker assigns
// consecutive sequence numbers in channel order starting at the account's
// current one, so a response's sequence number identifies its payload.
// Responses that carry no sequence number, such as build or submission
// errors, are matched to the payloads left unanswered once the worker is done.
func (n *AptosNode) Submit(ctx context.Context, sender aptos.TransactionSigner, payloads []aptos.TransactionPayload) <-chan Submission {
	out := make(chan Submission, len(payloads))
	go func() {
		defer close(out)
		if len(payloads) == 0 {
			return
		}
		start, err := n.SequenceNumber(ctx, sender.AccountAddress())
		if err != nil {
			for i := range payloads {
				out <- Submission{Index: i, Err: err}
			}
			return
		}

		requests := make(chan aptos.TransactionBuildPayload, len(payloads))
		responses := make(chan aptos.TransactionSubmissionResponse, len(payloads))
		go n.client.BuildSignAndSubmitTransactions(sender, requests, responses)

		for _, p := range payloads {
			requests <- aptos.TransactionBuildPayload{
				Type:  aptos.TransactionSubmissionTypeSingle,
				Inner: p,
			}
		}
		close(requests)

		answered := make([]bool, len(payloads))
		var unmatched []Submission
	collect:
		for received := 0; received < len(payloads); received++ {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-responses:
				if !ok {
					break collect
				}
				sub := Submission{Index: -1, Err: resp.Err}
				if resp.Err == nil && resp.Response != nil {
					sub.Hash = resp.Response.Hash
					if i, ok := payloadIndex(resp.Response.SequenceNumber, start, len(payloads)); ok && !answered[i] {
						sub.Index = i
					}
				}
				if sub.Index < 0 {
					unmatched = append(unmatched, sub)
					continue
				}
				answered[sub.Index] = true
				out <- sub
			}
		}

		next := 0
		for _, sub := range unmatched {
			for next < len(answered) && answered[next] {
				next++
			}
			if next == len(answered) {
				return
			}
			sub.Index = next
			answered[next] = true
			out <- sub
		}
	}()
	return out
}

func payloadIndex(seq, start uint64, n int) (int, bool) {
	if seq < start || seq-start >= uint64(n) {
		return 0, false
	}
	return int(seq - start), true
}

// Confirm waits for the transaction to be committed and reports its VM outcome.
// It returns ctx.Err() as soon as ctx is done; the SDK poll it started stops
// at the confirm timeout.
func (n *AptosNode) Confirm(ctx context.Context, hash string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	type result struct {
		txn *api.UserTransaction
		err error
	}
	done := make(chan result, 1)
	go func() {
		txn, err := n.client.WaitForTransaction(hash, aptos.PollTimeout(n.confirmTimeout))
		done <- result{txn: txn, err: err}
	}()

	select {
	case <-ctx.Done():
		return Receipt{Hash: hash}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Receipt{Hash: hash}, fmt.Errorf("wait for %s: %w", hash, r.err)
		}
		return Receipt{Hash: r.txn.Hash, Success: r.txn.Success, VMStatus: r.txn.VmStatus}, nil
	}
}
