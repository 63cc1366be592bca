package port

import (
	"context"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

// Ledger moves value between external account balances and the engine's
// custody. The engine calls it inside its critical section; a failed call
// aborts the whole operation with no state change.
type Ledger interface {
	// Debit removes amount from the account's external balance
	Debit(ctx context.Context, account domain.Account, amount domain.Money) error

	// Credit adds amount to the account's external balance
	Credit(ctx context.Context, account domain.Account, amount domain.Money) error
}
