package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/purescan/backend/internal/domain"
)

const scanXP = 10

// ProfileRepository owns per-user quota and entitlement state
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get loads one profile
func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	const q = `
SELECT id, email, stripe_customer_id, is_pro, daily_scans, last_scan_date,
       current_streak, level_xp, created_at
FROM profiles WHERE id = ? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, id)

	var (
		p        domain.Profile
		email    sql.NullString
		customer sql.NullString
		lastScan sql.NullString
	)
	if err := row.Scan(&p.ID, &email, &customer, &p.IsPro, &p.DailyScans, &lastScan,
		&p.CurrentStreak, &p.LevelXP, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	p.Email = email.String
	p.StripeCustomerID = customer.String
	p.LastScanDate = lastScan.String
	return &p, nil
}

// Create inserts a fresh profile row; re-creating an existing one is a no-op
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	const q = `
INSERT INTO profiles (id, email, is_pro, daily_scans, current_streak, level_xp, created_at)
VALUES (?,?,?,0,0,0,?)
ON DUPLICATE KEY UPDATE id = id;
`
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, p.ID, p.Email, p.IsPro, createdAt)
	return err
}

// ResetDailyScans zeroes the daily counter for a new day
func (r *ProfileRepository) ResetDailyScans(ctx context.Context, id, today string) error {
	const q = `UPDATE profiles SET daily_scans = 0, last_scan_date = ? WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, q, today, id)
	return err
}

// IncrementScanStats applies the post-scan bookkeeping in one atomic
// statement: daily counter (+1, reset on a new day, ceiling for free
// users), streak (+1 when yesterday was the last scan day, else restart)
// and XP. MySQL evaluates SET clauses left to right, so every expression
// reading last_scan_date runs before it is reassigned. Returns false when
// the WHERE guard rejected the update, i.e. a concurrent scan already used
// the last free slot.
func (r *ProfileRepository) IncrementScanStats(ctx context.Context, id, today string, limit int) (bool, error) {
	yesterday := previousDay(today)
	const q = `
UPDATE profiles
SET current_streak = CASE
        WHEN last_scan_date = ? THEN current_streak
        WHEN last_scan_date = ? THEN current_streak + 1
        ELSE 1
    END,
    level_xp    = level_xp + ?,
    daily_scans = CASE WHEN last_scan_date = ? THEN daily_scans + 1 ELSE 1 END,
    last_scan_date = ?
WHERE id = ? AND (is_pro = TRUE OR last_scan_date <> ? OR last_scan_date IS NULL OR daily_scans < ?);
`
	res, err := r.db.ExecContext(ctx, q,
		today, yesterday, scanXP, today, today,
		id, today, limit,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetPro flips the entitlement flag for a user
func (r *ProfileRepository) SetPro(ctx context.Context, id string, isPro bool) error {
	const q = `UPDATE profiles SET is_pro = ? WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, q, isPro, id)
	return err
}

// SetProByCustomer flips the entitlement flag via the billing customer id,
// the webhook's fallback path when no client reference is present
func (r *ProfileRepository) SetProByCustomer(ctx context.Context, customerID string, isPro bool) error {
	const q = `UPDATE profiles SET is_pro = ? WHERE stripe_customer_id = ?;`
	_, err := r.db.ExecContext(ctx, q, isPro, customerID)
	return err
}

// SetCustomerID stores the billing customer id on first checkout
func (r *ProfileRepository) SetCustomerID(ctx context.Context, id, customerID string) error {
	const q = `UPDATE profiles SET stripe_customer_id = ? WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, q, customerID, id)
	return err
}

func previousDay(today string) string {
	t, err := time.Parse("2006-01-02", today)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format("2006-01-02")
}
