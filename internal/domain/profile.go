package domain

import "time"

// FreeDailyScanLimit is the number of scans a free user gets per day
const FreeDailyScanLimit = 3

// Profile is the per-user account state. DailyScans/LastScanDate implement
// the daily quota; CurrentStreak/LevelXP drive the client's gamification.
type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty"`
	IsPro            bool      `json:"isPro"`
	DailyScans       int       `json:"dailyScans"`
	LastScanDate     string    `json:"lastScanDate"` // YYYY-MM-DD, empty if never scanned
	CurrentStreak    int       `json:"currentStreak"`
	LevelXP          int       `json:"levelXp"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CanScan reports whether the user is allowed another scan today.
// today is a YYYY-MM-DD date; a stale LastScanDate means the counter
// resets and the scan is allowed.
func (p *Profile) CanScan(today string) bool {
	if p.IsPro {
		return true
	}
	if p.LastScanDate != today {
		return true
	}
	return p.DailyScans < FreeDailyScanLimit
}

// RemainingScans returns the number of free scans left today (pro users
// are unmetered and report the full limit).
func (p *Profile) RemainingScans(today string) int {
	if p.IsPro {
		return FreeDailyScanLimit
	}
	if p.LastScanDate != today {
		return FreeDailyScanLimit
	}
	if left := FreeDailyScanLimit - p.DailyScans; left > 0 {
		return left
	}
	return 0
}
