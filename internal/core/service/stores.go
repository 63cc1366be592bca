package service

import (
	"time"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

// listingStore owns the listing records. Only EscrowService methods touch
// it, under the service mutex.
type listingStore struct {
	byID   map[uint64]*domain.Listing
	order  []uint64 // insertion order for available-listing queries
	nextID uint64
}

func newListingStore() *listingStore {
	return &listingStore{
		byID:   make(map[uint64]*domain.Listing),
		nextID: 1,
	}
}

func (s *listingStore) create(owner domain.Account, price, deposit domain.Money, metadataRef string, at time.Time) *domain.Listing {
	l := &domain.Listing{
		ID:            s.nextID,
		Owner:         owner,
		PricePerDay:   price,
		DepositAmount: deposit,
		IsAvailable:   true,
		MetadataRef:   metadataRef,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	s.nextID++
	s.byID[l.ID] = l
	s.order = append(s.order, l.ID)
	return l
}

func (s *listingStore) get(id uint64) *domain.Listing {
	return s.byID[id]
}

func (s *listingStore) count() uint64 {
	return uint64(len(s.order))
}

// availableIDs is recomputed per call, insertion order.
func (s *listingStore) availableIDs() []uint64 {
	ids := make([]uint64, 0, len(s.order))
	for _, id := range s.order {
		if s.byID[id].IsAvailable {
			ids = append(ids, id)
		}
	}
	return ids
}

// rentalStore owns the rental records. Settled rentals are kept for
// history; the latest record per listing is what queries return.
type rentalStore struct {
	latest  map[uint64]*domain.Rental // listing ID -> most recent rental
	history []*domain.Rental
	nextID  uint64
}

func newRentalStore() *rentalStore {
	return &rentalStore{
		latest: make(map[uint64]*domain.Rental),
		nextID: 1,
	}
}

func (s *rentalStore) create(listingID uint64, renter domain.Account, start, end time.Time, days uint64, held, deposit domain.Money, at time.Time) *domain.Rental {
	r := &domain.Rental{
		ID:         s.nextID,
		ListingID:  listingID,
		Renter:     renter,
		StartTime:  start,
		EndTime:    end,
		RentalDays: days,
		AmountHeld: held,
		Deposit:    deposit,
		Active:     true,
		CreatedAt:  at,
	}
	s.nextID++
	s.latest[listingID] = r
	s.history = append(s.history, r)
	return r
}

func (s *rentalStore) get(listingID uint64) *domain.Rental {
	return s.latest[listingID]
}

func (s *rentalStore) active(listingID uint64) *domain.Rental {
	r := s.latest[listingID]
	if r == nil || !r.Active {
		return nil
	}
	return r
}
