package domain

import "time"

const secondsPerDay = 86400

type Rental struct {
	ID         uint64
	ListingID  uint64
	Renter     Account
	StartTime  time.Time
	EndTime    time.Time
	RentalDays uint64
	// AmountHeld = fee + Deposit, both captured at booking time. Deposit is
	// kept separately so settlement splits exactly even if the listing's
	// rate changes while the rental is active.
	AmountHeld Money
	Deposit    Money
	Active     bool
	CreatedAt  time.Time
}

// RentalDays rounds a booking window up to whole days, minimum one.
func RentalDays(start, end time.Time) uint64 {
	secs := end.Unix() - start.Unix()
	if secs <= 0 {
		return 1
	}
	return uint64((secs + secondsPerDay - 1) / secondsPerDay)
}
