// Package payload turns recipient addresses into APT transfer intents.
package payload

import (
	"fmt"

	"github.com/aptos-labs/aptos-go-sdk"
)

// Function is the entry function every transfer calls.
const Function = "0x1::aptos_account::transfer"

// TransferIntent sends Amount octas to Recipient. Index is the intent's
// position in the batch and correlates lifecycle events back to it.
type TransferIntent struct {
	Index     int
	Recipient aptos.AccountAddress
	Amount    uint64
}

// Build returns one intent per address, in address order.
func Build(addrs []aptos.AccountAddress, amount uint64) []TransferIntent {
	intents := make([]TransferIntent, len(addrs))
	for i, addr := range addrs {
		intents[i] = TransferIntent{Index: i, Recipient: addr, Amount: amount}
	}
	return intents
}

// Args returns the entry function arguments: recipient, then amount.
func (t TransferIntent) Args() []any {
	return []any{t.Recipient, t.Amount}
}

func (t TransferIntent) String() string {
	return fmt.Sprintf("%s(%s, %d)", Function, t.Recipient.String(), t.Amount)
}

// TransactionPayload converts the intent to the SDK's payload form.
func (t TransferIntent) TransactionPayload() (aptos.TransactionPayload, error) {
	entry, err := aptos.CoinTransferPayload(nil, t.Recipient, t.Amount)
	if err != nil {
		return aptos.TransactionPayload{}, fmt.Errorf("transfer payload for %s: %w", t.Recipient.String(), err)
	}
	return aptos.TransactionPayload{Payload: entry}, nil
}
