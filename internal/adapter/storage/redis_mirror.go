package storage

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tdquang/car-escrow/internal/core/domain"
)

const (
	availableKey   = "listings:available"
	eventKeyPrefix = "escrow:event:"
	eventKeyTTL    = 24 * time.Hour
)

// applyScript makes dedup + mutation atomic: the event ID key is set and the
// availability set updated in one round trip, so a redelivered event is a
// clean no-op.
var applyScript = redis.NewScript(`
local seen = KEYS[1]
local set = KEYS[2]
local op = ARGV[1]
local listing = ARGV[2]
local ttl = tonumber(ARGV[3])

if redis.call('EXISTS', seen) == 1 then
	return 0
end
redis.call('SET', seen, 1, 'EX', ttl)

if op == 'add' then
	redis.call('SADD', set, listing)
elseif op == 'rem' then
	redis.call('SREM', set, listing)
end

return 1
`)

// RedisMirror keeps the set of available listing IDs in Redis as an
// off-core read mirror of the event stream.
type RedisMirror struct {
	client *redis.Client
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

// Deliver applies one event to the mirror. At-least-once safe.
func (m *RedisMirror) Deliver(ctx context.Context, e domain.Event) error {
	op := "noop"
	switch e.Type {
	case domain.EventListed, domain.EventCancelled, domain.EventCompleted:
		op = "add"
	case domain.EventBooked:
		op = "rem"
	}

	keys := []string{eventKeyPrefix + e.ID, availableKey}
	args := []interface{}{op, strconv.FormatUint(e.ListingID, 10), int(eventKeyTTL.Seconds())}
	return applyScript.Run(ctx, m.client, keys, args...).Err()
}

// Available returns the mirrored listing IDs, ascending.
func (m *RedisMirror) Available(ctx context.Context) ([]uint64, error) {
	members, err := m.client.SMembers(ctx, availableKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(members))
	for _, s := range members {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
