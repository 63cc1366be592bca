package domain

import (
	"errors"
	"math"
)

// Money is a non-negative amount in the ledger's smallest indivisible unit.
// All arithmetic is checked; an overflow rejects the operation instead of
// wrapping.
type Money uint64

var ErrAmountOverflow = errors.New("amount overflow")

func (m Money) Add(n Money) (Money, error) {
	if n > math.MaxUint64-m {
		return 0, ErrAmountOverflow
	}
	return m + n, nil
}

func (m Money) Sub(n Money) (Money, error) {
	if n > m {
		return 0, ErrAmountOverflow
	}
	return m - n, nil
}

// MulDays computes m * days for a rental fee.
func (m Money) MulDays(days uint64) (Money, error) {
	if m == 0 || days == 0 {
		return 0, nil
	}
	if uint64(m) > math.MaxUint64/days {
		return 0, ErrAmountOverflow
	}
	return m * Money(days), nil
}

// Half is integer division by two; the truncated remainder stays wherever
// the amount was held.
func (m Money) Half() Money {
	return m / 2
}

func (m Money) IsZero() bool {
	return m == 0
}
