// Package risk holds pre-flight funding checks for a distribution batch.
package risk

import (
	"fmt"
	"math/bits"
)

// Limits caps what a batch may spend.
type Limits struct {
	Balance uint64
}

func (l Limits) Allow(required uint64) bool {
	return required <= l.Balance
}

// Shortfall is how many octas are missing for required.
func (l Limits) Shortfall(required uint64) uint64 {
	if l.Allow(required) {
		return 0
	}
	return required - l.Balance
}

// Required is the octas n transfers of amount need, excluding gas.
func Required(n int, amount uint64) (uint64, error) {
	if n < 0 {
		return 0, fmt.Errorf("negative transfer count %d", n)
	}
	hi, lo := bits.Mul64(uint64(n), amount)
	if hi != 0 {
		return 0, fmt.Errorf("%d transfers of %d octas overflow", n, amount)
	}
	return lo, nil
}

// InsufficientFundsError reports a balance below the batch total.
type InsufficientFundsError struct {
	Balance  uint64
	Required uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d octas, batch requires %d", e.Balance, e.Required)
}
