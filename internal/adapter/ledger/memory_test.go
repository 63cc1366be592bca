package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

func TestMemory_CreditDebit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Credit(ctx, "alice", 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if err := m.Debit(ctx, "alice", 40); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	if bal := m.Balance("alice"); bal != 60 {
		t.Errorf("expected balance 60, got %d", bal)
	}
}

func TestMemory_DebitInsufficient(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Credit(ctx, "alice", 10)

	err := m.Debit(ctx, "alice", 11)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
	if bal := m.Balance("alice"); bal != 10 {
		t.Errorf("failed debit must not change the balance, got %d", bal)
	}

	// Unknown accounts have a zero balance
	if err := m.Debit(ctx, "nobody", 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds for unknown account, got: %v", err)
	}
}

func TestMemory_CreditOverflow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Credit(ctx, "alice", math.MaxUint64)

	err := m.Credit(ctx, "alice", 1)
	if !errors.Is(err, domain.ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got: %v", err)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Credit(ctx, "alice", 1_000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Debit(ctx, "alice", 1)
			m.Credit(ctx, "bob", 1)
		}()
	}
	wg.Wait()

	if bal := m.Balance("alice"); bal != 900 {
		t.Errorf("expected alice balance 900, got %d", bal)
	}
	if bal := m.Balance("bob"); bal != 100 {
		t.Errorf("expected bob balance 100, got %d", bal)
	}
}
