package domain

import "time"

// Account is an opaque identity reference. The engine only ever compares
// accounts for equality.
type Account string

type Listing struct {
	ID            uint64
	Owner         Account
	PricePerDay   Money
	DepositAmount Money
	IsAvailable   bool
	MetadataRef   string // opaque pointer to off-core descriptive data
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
