package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/internal/service"
	"github.com/hivex-io/hivex/pkg/database"
)

// couponColumns is the column list every coupon query selects, in scanCoupon order.
const couponColumns = `id, seq, code, title, value, expiry, venue_id, deal_id, member_id,
	claimed_at, redeemed, redeemed_at, points, qr_image_id, created_at`

// CouponRepository provides data access for the coupon pool using pgx.
type CouponRepository struct {
	pool database.TxQuerier
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool database.TxQuerier) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// scanCoupon scans one row selected with couponColumns.
func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	var memberID *uuid.UUID
	err := row.Scan(
		&c.ID,
		&c.Seq,
		&c.Code,
		&c.Title,
		&c.Value,
		&c.Expiry,
		&c.VenueID,
		&c.DealID,
		&memberID,
		&c.ClaimedAt,
		&c.Redeemed,
		&c.RedeemedAt,
		&c.Points,
		&c.QRImageID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Holder = model.HolderFromNullable(memberID)
	return &c, nil
}

// collectCoupons drains rows into a non-nil slice.
func collectCoupons(rows pgx.Rows) ([]*model.Coupon, error) {
	defer rows.Close()

	coupons := []*model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// InsertIfAbsent inserts an unclaimed coupon unless its code is already taken.
// Returns false without error on a code collision; the unique index on code
// makes this check atomic across concurrent issuances.
func (r *CouponRepository) InsertIfAbsent(ctx context.Context, tx database.TxQuerier, c *model.Coupon) (bool, error) {
	query := `INSERT INTO coupons (id, code, title, value, expiry, venue_id, deal_id, points, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO NOTHING
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		c.ID, c.Code, c.Title, c.Value, c.Expiry, c.VenueID, c.DealID, c.Points, c.CreatedAt,
	).Scan(&c.Seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert coupon %s: %w", c.Code, err)
	}
	return true, nil
}

// AttachQR links a stored QR image to a coupon.
func (r *CouponRepository) AttachQR(ctx context.Context, tx database.TxQuerier, couponID, imageID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE coupons SET qr_image_id = $2 WHERE id = $1`, couponID, imageID)
	if err != nil {
		return fmt.Errorf("attach qr image to coupon %s: %w", couponID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attach qr image to coupon %s: %w", couponID, service.ErrNotFound)
	}
	return nil
}

// GetByCode retrieves a coupon by its code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return c, nil
}

// ListByDeal returns the pool of a deal in insertion order.
func (r *CouponRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*model.Coupon, error) {
	return r.list(ctx, `WHERE deal_id = $1 ORDER BY seq`, dealID)
}

// ListByMember returns the coupons held by a member, newest claim first.
func (r *CouponRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error) {
	return r.list(ctx, `WHERE member_id = $1 ORDER BY claimed_at DESC, seq`, memberID)
}

// ListByVenue returns every coupon minted for a venue's deals.
func (r *CouponRepository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error) {
	return r.list(ctx, `WHERE venue_id = $1 ORDER BY seq`, venueID)
}

func (r *CouponRepository) list(ctx context.Context, where string, arg any) ([]*model.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return collectCoupons(rows)
}

// Redeem marks a coupon redeemed in a single conditional update.
// The update only applies when the coupon is held by memberID, not yet
// redeemed and not expired at now; otherwise nil, nil is returned and the
// caller re-reads the coupon to find out which condition failed.
func (r *CouponRepository) Redeem(ctx context.Context, code string, memberID uuid.UUID, now time.Time) (*model.Coupon, error) {
	query := `UPDATE coupons SET redeemed = TRUE, redeemed_at = $3
		WHERE code = $1 AND member_id = $2 AND redeemed = FALSE AND expiry >= $3
		RETURNING ` + couponColumns

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, code, memberID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if database.IsRetryable(err) {
			return nil, fmt.Errorf("redeem coupon %s: %w", code, service.ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("redeem coupon %s: %w", code, err)
	}
	return c, nil
}

// Analytics aggregates coupon usage per deal title.
// The average span only covers redeemed coupons.
func (r *CouponRepository) Analytics(ctx context.Context) ([]model.TitleAnalytics, error) {
	query := `SELECT title,
			COUNT(*)::int,
			(COUNT(*) FILTER (WHERE redeemed))::int,
			COALESCE(AVG(EXTRACT(EPOCH FROM (redeemed_at - created_at)) / 86400.0) FILTER (WHERE redeemed), 0)::float8
		FROM coupons
		GROUP BY title
		ORDER BY title`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query coupon analytics: %w", err)
	}
	defer rows.Close()

	result := []model.TitleAnalytics{}
	for rows.Next() {
		var a model.TitleAnalytics
		if err := rows.Scan(&a.Title, &a.Count, &a.Redeemed, &a.AverageSpanDays); err != nil {
			return nil, fmt.Errorf("scan coupon analytics: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon analytics rows: %w", err)
	}
	return result, nil
}
