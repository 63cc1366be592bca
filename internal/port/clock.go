package port

import "time"

// Clock supplies the authoritative time. Every engine operation reads it
// exactly once, at entry.
type Clock interface {
	Now() time.Time
}
