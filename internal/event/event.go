// Package event standardizes the lifecycle notifications a batch emits per transfer.
package event

import (
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
)

// Kind tags which lifecycle step an Event describes.
type Kind string

const (
	// Sent means the transaction was accepted by the node.
	Sent Kind = "sent"
	// Executed means the transaction committed successfully.
	Executed Kind = "executed"
	// SendFailed means the transaction never reached the node.
	SendFailed Kind = "send_failed"
	// ExecutionFailed means the transaction committed with a VM failure or could not be confirmed.
	ExecutionFailed Kind = "execution_failed"
	// Finished is emitted once, after every other event of the batch.
	Finished Kind = "finished"
)

// Event is one lifecycle notification. Index and Recipient identify the
// transfer; both are unset on Finished.
type Event struct {
	Kind      Kind
	Index     int
	Recipient aptos.AccountAddress
	Hash      string
	Message   string
	Err       error
	At        time.Time
}

// Failed reports whether the event is a per-transaction failure.
func (e Event) Failed() bool {
	return e.Kind == SendFailed || e.Kind == ExecutionFailed
}
