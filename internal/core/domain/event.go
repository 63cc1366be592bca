package domain

import "time"

type EventType string

const (
	EventListed      EventType = "listed"
	EventRateChanged EventType = "rate_changed"
	EventBooked      EventType = "booked"
	EventCancelled   EventType = "cancelled"
	EventCompleted   EventType = "completed"
)

// Event is one entry in the engine's append-only log. ID and Seq are
// assigned by the emitter; mirrors receive events at least once and must
// deduplicate on ID. Only the fields relevant to the event type are set.
type Event struct {
	ID   string    `json:"id"`
	Seq  uint64    `json:"seq"`
	Type EventType `json:"type"`
	At   time.Time `json:"at"`

	ListingID uint64 `json:"listing_id"`
	RentalID  uint64 `json:"rental_id,omitempty"`

	Owner  Account `json:"owner,omitempty"`
	Renter Account `json:"renter,omitempty"`

	PricePerDay   Money `json:"price_per_day,omitempty"`
	DepositAmount Money `json:"deposit_amount,omitempty"`
	Paid          Money `json:"paid,omitempty"`
	Refund        Money `json:"refund,omitempty"`
	OwnerPayout   Money `json:"owner_payout,omitempty"`
	RenterPayout  Money `json:"renter_payout,omitempty"`

	StartTime int64 `json:"start_time,omitempty"` // unix seconds
	EndTime   int64 `json:"end_time,omitempty"`

	MetadataRef string `json:"metadata_ref,omitempty"`
}
