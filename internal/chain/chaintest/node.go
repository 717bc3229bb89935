// Package chaintest provides an in-memory chain.Node for tests.
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aptos-labs/aptos-go-sdk"

	"github.com/0xjunha/apt-reward-script/internal/chain"
)

// Node records calls and answers from canned outcomes.
type Node struct {
	mu sync.Mutex

	BalanceOctas uint64
	BalanceErr   error
	Sequence     uint64
	SequenceErr  error

	// SendErrs fails the submission of the payload at that index.
	SendErrs map[int]error
	// Reverted marks payload indexes whose transaction commits with Success=false.
	Reverted map[int]bool
	// ConfirmErrs fails the confirmation of the payload at that index.
	ConfirmErrs map[int]error
	// Drop leaves payload indexes unanswered by Submit.
	Drop map[int]bool

	balanceCalls  int
	sequenceCalls int
	submitCalls   int
	submitted     []aptos.TransactionPayload
	confirmed     []string
}

var _ chain.Node = (*Node)(nil)

// Hash is the fake transaction hash assigned to payload i.
func Hash(i int) string { return fmt.Sprintf("0x%064x", i+1) }

func indexOf(hash string) int {
	var i int
	if _, err := fmt.Sscanf(hash, "0x%x", &i); err != nil {
		return -1
	}
	return i - 1
}

func (n *Node) Balance(ctx context.Context, _ aptos.AccountAddress) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balanceCalls++
	return n.BalanceOctas, n.BalanceErr
}

func (n *Node) SequenceNumber(ctx context.Context, _ aptos.AccountAddress) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sequenceCalls++
	return n.Sequence, n.SequenceErr
}

func (n *Node) Submit(ctx context.Context, _ aptos.TransactionSigner, payloads []aptos.TransactionPayload) <-chan chain.Submission {
	n.mu.Lock()
	n.submitCalls++
	n.submitted = append(n.submitted, payloads...)
	n.mu.Unlock()

	out := make(chan chain.Submission, len(payloads))
	go func() {
		defer close(out)
		// answer in reverse to exercise out-of-order handling
		for i := len(payloads) - 1; i >= 0; i-- {
			if n.Drop[i] {
				continue
			}
			if err := n.SendErrs[i]; err != nil {
				out <- chain.Submission{Index: i, Err: err}
				continue
			}
			out <- chain.Submission{Index: i, Hash: Hash(i)}
		}
	}()
	return out
}

func (n *Node) Confirm(ctx context.Context, hash string) (chain.Receipt, error) {
	n.mu.Lock()
	n.confirmed = append(n.confirmed, hash)
	n.mu.Unlock()

	i := indexOf(hash)
	if err := n.ConfirmErrs[i]; err != nil {
		return chain.Receipt{Hash: hash}, err
	}
	if n.Reverted[i] {
		return chain.Receipt{Hash: hash, Success: false, VMStatus: "Move abort: EINSUFFICIENT_BALANCE"}, nil
	}
	return chain.Receipt{Hash: hash, Success: true, VMStatus: "Executed successfully"}, nil
}

// BalanceCalls reports how many balance lookups were made.
func (n *Node) BalanceCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balanceCalls
}

// SequenceCalls reports how many sequence number lookups were made.
func (n *Node) SequenceCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sequenceCalls
}

// SubmitCalls reports how many batches were submitted.
func (n *Node) SubmitCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.submitCalls
}

// Submitted returns a copy of every payload handed to Submit.
func (n *Node) Submitted() []aptos.TransactionPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]aptos.TransactionPayload, len(n.submitted))
	copy(out, n.submitted)
	return out
}

// Confirmed returns a copy of every hash handed to Confirm.
func (n *Node) Confirmed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.confirmed))
	copy(out, n.confirmed)
	return out
}
