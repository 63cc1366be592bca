package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tdquang/car-escrow/internal/core/domain"
	"github.com/tdquang/car-escrow/internal/core/event"
	"github.com/tdquang/car-escrow/internal/port"
)

var (
	ErrNotFound         = errors.New("car does not exist")
	ErrUnavailable      = errors.New("car unavailable")
	ErrStartInPast      = errors.New("start time must be in future")
	ErrIncorrectPayment = errors.New("incorrect payment")
	ErrNoActiveRental   = errors.New("no active rental")
	ErrTooLateToCancel  = errors.New("too late to cancel")
	ErrTooEarly         = errors.New("too early")
	ErrNotOwner         = errors.New("not car owner")
	ErrNotRenter        = errors.New("not renter")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// cancellations more than this far ahead of the rental start refund in full;
// later ones refund half
const cancellationCutoff = 48 * time.Hour

// EscrowService is the rental escrow state machine. It is the sole writer
// to the listing and rental stores and the sole custodian of booked funds
// between booking and settlement. One mutex serializes every operation;
// each reads the clock exactly once and either fully applies its effect
// (state + ledger movement + event) or has no effect at all.
type EscrowService struct {
	mu       sync.Mutex
	clock    port.Clock
	ledger   port.Ledger
	emitter  *event.Emitter
	listings *listingStore
	rentals  *rentalStore

	// escrow is the total held by the engine: active rentals plus the
	// truncated remainders of half refunds.
	escrow domain.Money
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewEscrowService builds an engine with its own empty stores. A nil clock
// means wall-clock time.
func NewEscrowService(ledger port.Ledger, emitter *event.Emitter, clock port.Clock) *EscrowService {
	if clock == nil {
		clock = systemClock{}
	}
	return &EscrowService{
		clock:    clock,
		ledger:   ledger,
		emitter:  emitter,
		listings: newListingStore(),
		rentals:  newRentalStore(),
	}
}

// ListCar inserts an available listing and returns its sequential ID.
func (s *EscrowService) ListCar(ctx context.Context, owner domain.Account, pricePerDay, depositAmount domain.Money, metadataRef string) (uint64, error) {
	if pricePerDay.IsZero() {
		return 0, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	l := s.listings.create(owner, pricePerDay, depositAmount, metadataRef, now)

	s.emitter.Emit(domain.Event{
		Type:          domain.EventListed,
		At:            now,
		ListingID:     l.ID,
		Owner:         l.Owner,
		PricePerDay:   l.PricePerDay,
		DepositAmount: l.DepositAmount,
		MetadataRef:   l.MetadataRef,
	})
	return l.ID, nil
}

// SetRateAndDeposit updates a listing's price and deposit in place. Owner
// only. Permitted while a rental is active; the active rental's held amount
// was captured at booking and is unaffected.
func (s *EscrowService) SetRateAndDeposit(ctx context.Context, listingID uint64, caller domain.Account, newPrice, newDeposit domain.Money) error {
	if newPrice.IsZero() {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	l := s.listings.get(listingID)
	if l == nil {
		return ErrNotFound
	}
	if caller != l.Owner {
		return ErrNotOwner
	}

	l.PricePerDay = newPrice
	l.DepositAmount = newDeposit
	l.UpdatedAt = now

	s.emitter.Emit(domain.Event{
		Type:          domain.EventRateChanged,
		At:            now,
		ListingID:     l.ID,
		PricePerDay:   newPrice,
		DepositAmount: newDeposit,
	})
	return nil
}

// BookCar reserves a listing for [start, end) against exact payment of
// pricePerDay*days + deposit. Days round up to whole days, minimum one.
// The payment is debited from the renter and held in escrow atomically
// with the state change.
func (s *EscrowService) BookCar(ctx context.Context, listingID uint64, renter domain.Account, start, end time.Time, payment domain.Money) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	l := s.listings.get(listingID)
	if l == nil {
		return 0, ErrNotFound
	}
	if !l.IsAvailable {
		return 0, ErrUnavailable
	}
	if !start.After(now) {
		return 0, ErrStartInPast
	}

	days := domain.RentalDays(start, end)
	fee, err := l.PricePerDay.MulDays(days)
	if err != nil {
		return 0, fmt.Errorf("rental fee: %w", err)
	}
	required, err := fee.Add(l.DepositAmount)
	if err != nil {
		return 0, fmt.Errorf("required payment: %w", err)
	}
	if payment != required {
		return 0, ErrIncorrectPayment
	}

	escrow, err := s.escrow.Add(payment)
	if err != nil {
		return 0, fmt.Errorf("escrow balance: %w", err)
	}

	if err := s.ledger.Debit(ctx, renter, payment); err != nil {
		return 0, fmt.Errorf("debit renter: %w", err)
	}

	r := s.rentals.create(listingID, renter, start, end, days, payment, l.DepositAmount, now)
	l.IsAvailable = false
	l.UpdatedAt = now
	s.escrow = escrow

	s.emitter.Emit(domain.Event{
		Type:      domain.EventBooked,
		At:        now,
		ListingID: listingID,
		RentalID:  r.ID,
		Renter:    renter,
		Paid:      payment,
		StartTime: start.Unix(),
		EndTime:   end.Unix(),
	})
	return r.ID, nil
}

// CancelBooking settles an active rental before its window opens. Strictly
// more than 48h ahead of the start refunds everything; otherwise half,
// floored, with the remainder retained in escrow. The caller is not
// restricted; the refund always goes to the recorded renter.
func (s *EscrowService) CancelBooking(ctx context.Context, listingID uint64, caller domain.Account) (domain.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	l := s.listings.get(listingID)
	if l == nil {
		return 0, ErrNotFound
	}
	r := s.rentals.active(listingID)
	if r == nil {
		return 0, ErrNoActiveRental
	}
	if !now.Before(r.StartTime) {
		return 0, ErrTooLateToCancel
	}

	refund := r.AmountHeld
	if r.StartTime.Sub(now) <= cancellationCutoff {
		refund = r.AmountHeld.Half()
	}

	if err := s.ledger.Credit(ctx, r.Renter, refund); err != nil {
		return 0, fmt.Errorf("refund renter: %w", err)
	}

	r.Active = false
	l.IsAvailable = true
	l.UpdatedAt = now
	s.escrow -= refund // remainder of a half refund stays in escrow

	s.emitter.Emit(domain.Event{
		Type:      domain.EventCancelled,
		At:        now,
		ListingID: listingID,
		RentalID:  r.ID,
		Renter:    r.Renter,
		Refund:    refund,
	})
	return refund, nil
}

// CompleteRental settles an active rental after its window closes: the
// owner receives the fee portion of the held amount, the renter the full
// deposit. Only the recorded renter may complete.
func (s *EscrowService) CompleteRental(ctx context.Context, listingID uint64, caller domain.Account) (domain.Money, domain.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	l := s.listings.get(listingID)
	if l == nil {
		return 0, 0, ErrNotFound
	}
	r := s.rentals.active(listingID)
	if r == nil {
		return 0, 0, ErrNoActiveRental
	}
	if now.Before(r.EndTime) {
		return 0, 0, ErrTooEarly
	}
	if caller != r.Renter {
		return 0, 0, ErrNotRenter
	}

	ownerPayout := r.AmountHeld - r.Deposit
	renterPayout := r.Deposit

	if err := s.ledger.Credit(ctx, l.Owner, ownerPayout); err != nil {
		return 0, 0, fmt.Errorf("pay owner: %w", err)
	}
	if err := s.ledger.Credit(ctx, r.Renter, renterPayout); err != nil {
		// unwind the owner credit so the settlement stays all-or-nothing
		if dbErr := s.ledger.Debit(ctx, l.Owner, ownerPayout); dbErr != nil {
			return 0, 0, fmt.Errorf("refund deposit: %w (unwind owner payout: %v)", err, dbErr)
		}
		return 0, 0, fmt.Errorf("refund deposit: %w", err)
	}

	r.Active = false
	l.IsAvailable = true
	l.UpdatedAt = now
	s.escrow -= r.AmountHeld

	s.emitter.Emit(domain.Event{
		Type:         domain.EventCompleted,
		At:           now,
		ListingID:    listingID,
		RentalID:     r.ID,
		Renter:       r.Renter,
		OwnerPayout:  ownerPayout,
		RenterPayout: renterPayout,
	})
	return ownerPayout, renterPayout, nil
}

// GetListing returns a copy of the listing record.
func (s *EscrowService) GetListing(ctx context.Context, listingID uint64) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.listings.get(listingID)
	if l == nil {
		return domain.Listing{}, ErrNotFound
	}
	return *l, nil
}

// GetRentalInfo returns a copy of the most recent rental for the listing,
// active or settled. Listings that were never booked have none.
func (s *EscrowService) GetRentalInfo(ctx context.Context, listingID uint64) (domain.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rentals.get(listingID)
	if r == nil {
		return domain.Rental{}, ErrNotFound
	}
	return *r, nil
}

// GetAvailableListings returns the IDs of bookable listings in insertion
// order, recomputed per call.
func (s *EscrowService) GetAvailableListings(ctx context.Context) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listings.availableIDs()
}

// ListingCount is the total number of listings ever created.
func (s *EscrowService) ListingCount(ctx context.Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listings.count()
}

// EscrowBalance is the total currently held by the engine: every active
// rental's AmountHeld plus remainders retained from half refunds.
func (s *EscrowService) EscrowBalance() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.escrow
}
