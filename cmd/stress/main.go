package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tdquang/car-escrow/internal/adapter/ledger"
	"github.com/tdquang/car-escrow/internal/core/domain"
	"github.com/tdquang/car-escrow/internal/core/event"
	"github.com/tdquang/car-escrow/internal/core/service"
)

const (
	totalRenters = 50
	pricePerDay  = domain.Money(2_000)
	deposit      = domain.Money(10_000)
	queueSize    = 1024
)

// Hammers one listing with concurrent bookings. Exactly one renter must
// win; everyone else must see "car unavailable".
func main() {
	ctx := context.Background()

	accounts := ledger.NewMemory()
	emitter := event.NewEmitter(queueSize)
	defer emitter.Close()
	escrow := service.NewEscrowService(accounts, emitter, nil)

	// Drain the event queue in background
	go func() {
		for range emitter.Events() {
		}
	}()

	listingID, err := escrow.ListCar(ctx, "owner-1", pricePerDay, deposit, "ipfs://stress-car")
	if err != nil {
		log.Fatalf("failed to list car: %v", err)
	}

	start := time.Now().Add(72 * time.Hour)
	end := start.Add(48 * time.Hour)
	payment := pricePerDay*2 + deposit

	// Fund every renter up front
	for i := 0; i < totalRenters; i++ {
		renter := domain.Account(fmt.Sprintf("renter-%d", i))
		if err := accounts.Credit(ctx, renter, payment); err != nil {
			log.Fatalf("failed to fund %s: %v", renter, err)
		}
	}

	// Counters
	var successCount atomic.Int32
	var unavailableCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	began := time.Now()

	for i := 0; i < totalRenters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			renter := domain.Account(fmt.Sprintf("renter-%d", id))
			_, err := escrow.BookCar(ctx, listingID, renter, start, end, payment)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrUnavailable):
				unavailableCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(began)

	success := successCount.Load()
	unavailable := unavailableCount.Load()
	other := otherCount.Load()

	fmt.Println("========== BOOKING STORM RESULTS ==========")
	fmt.Printf("Renters:          %d\n", totalRenters)
	fmt.Printf("Booked:           %d\n", success)
	fmt.Printf("Unavailable:      %d\n", unavailable)
	fmt.Printf("Other failures:   %d\n", other)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("===========================================")

	if success == 1 && unavailable == int32(totalRenters-1) && other == 0 {
		fmt.Println("PASS: exactly one booking won")
	} else {
		fmt.Printf("FAIL: expected 1 success/%d unavailable, got %d/%d\n",
			totalRenters-1, success, unavailable)
	}

	if escrow.EscrowBalance() == payment {
		fmt.Printf("PASS: escrow holds exactly one payment (%d)\n", payment)
	} else {
		fmt.Printf("FAIL: expected escrow %d, got %d\n", payment, escrow.EscrowBalance())
	}
}
