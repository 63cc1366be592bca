package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

// MySQLJournal persists the event stream as an append-only table. The
// primary key on the event ID makes redelivery a no-op, so consumers can
// treat the table as the durable at-least-once log.
type MySQLJournal struct {
	db *sql.DB
}

func NewMySQLJournal(db *sql.DB) *MySQLJournal {
	return &MySQLJournal{db: db}
}

func (j *MySQLJournal) InitSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS escrow_events (
			event_id   VARCHAR(36) PRIMARY KEY,
			seq        BIGINT UNSIGNED NOT NULL,
			event_type VARCHAR(32) NOT NULL,
			listing_id BIGINT UNSIGNED NOT NULL,
			rental_id  BIGINT UNSIGNED NOT NULL DEFAULT 0,
			occurred_at DATETIME NOT NULL,
			payload    JSON NOT NULL,
			INDEX idx_listing (listing_id, seq)
		)`)
	if err != nil {
		return fmt.Errorf("create escrow_events: %w", err)
	}
	return nil
}

func (j *MySQLJournal) Deliver(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.ID, err)
	}

	// duplicate event IDs update nothing, keeping the journal append-only
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO escrow_events (event_id, seq, event_type, listing_id, rental_id, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE event_id = event_id`,
		e.ID, e.Seq, string(e.Type), e.ListingID, e.RentalID, e.At.UTC(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

// CountForListing reports how many events the journal holds for a listing.
func (j *MySQLJournal) CountForListing(ctx context.Context, listingID uint64) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM escrow_events WHERE listing_id = ?`, listingID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
