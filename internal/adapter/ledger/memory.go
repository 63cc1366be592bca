package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Memory holds account balances in process. It backs the engine's Ledger
// port for single-node deployments and tests.
type Memory struct {
	mu       sync.Mutex
	balances map[domain.Account]domain.Money
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[domain.Account]domain.Money)}
}

func (m *Memory) Debit(ctx context.Context, account domain.Account, amount domain.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[account]
	if bal < amount {
		return fmt.Errorf("debit %s: %w", account, ErrInsufficientFunds)
	}
	m.balances[account] = bal - amount
	return nil
}

func (m *Memory) Credit(ctx context.Context, account domain.Account, amount domain.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, err := m.balances[account].Add(amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	m.balances[account] = bal
	return nil
}

// Balance reads an account's current balance.
func (m *Memory) Balance(account domain.Account) domain.Money {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balances[account]
}
