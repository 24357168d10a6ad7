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

// dealMemberConstraint is the partial unique index allowing one coupon per member per deal.
const dealMemberConstraint = "coupons_deal_member_key"

// ClaimRepository provides the claim-side queries of the coupon pool.
// Every method runs inside the caller's transaction.
type ClaimRepository struct {
	pool database.TxQuerier
}

// NewClaimRepository creates a new ClaimRepository with the given pool.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// NewClaimRepositoryWithPool creates a new ClaimRepository with a custom pool interface.
// This is primarily used for testing.
func NewClaimRepositoryWithPool(pool database.TxQuerier) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// GetMembersByDeal returns the ids of members who claimed a coupon of dealID, in claim order.
// On success, returns an empty slice (not nil) when no claims exist.
func (r *ClaimRepository) GetMembersByDeal(ctx context.Context, dealID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT member_id FROM coupons WHERE deal_id = $1 AND member_id IS NOT NULL ORDER BY claimed_at, seq`

	rows, err := r.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("get claims for deal %s: %w", dealID, err)
	}
	defer rows.Close()

	members := []uuid.UUID{}
	for rows.Next() {
		var memberID uuid.UUID
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("scan claim member_id: %w", err)
		}
		members = append(members, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims rows: %w", err)
	}
	return members, nil
}

// HasClaimForDeal reports whether memberID already holds a coupon of dealID.
func (r *ClaimRepository) HasClaimForDeal(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM coupons WHERE deal_id = $1 AND member_id = $2)`

	var exists bool
	if err := tx.QueryRow(ctx, query, dealID, memberID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check claim for deal %s: %w", dealID, err)
	}
	return exists, nil
}

// CountHeld counts every coupon held by memberID across all deals, redeemed or not.
func (r *ClaimRepository) CountHeld(ctx context.Context, tx database.TxQuerier, memberID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM coupons WHERE member_id = $1`

	var count int
	if err := tx.QueryRow(ctx, query, memberID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coupons held by %s: %w", memberID, err)
	}
	return count, nil
}

// ClaimNext assigns the oldest unclaimed coupon of dealID to memberID.
// Selection and assignment are one statement: the candidate row is locked
// with FOR UPDATE, and a concurrent claimant blocked on it moves on to the
// next unclaimed row once the first commits.
// Returns nil, nil when the pool is exhausted.
func (r *ClaimRepository) ClaimNext(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID, now time.Time) (*model.Coupon, error) {
	query := `UPDATE coupons SET member_id = $2, claimed_at = $3
		WHERE id = (
			SELECT id FROM coupons
			WHERE deal_id = $1 AND member_id IS NULL
			ORDER BY seq
			LIMIT 1
			FOR UPDATE
		) AND member_id IS NULL
		RETURNING ` + couponColumns

	c, err := scanCoupon(tx.QueryRow(ctx, query, dealID, memberID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if database.IsUniqueViolation(err, dealMemberConstraint) {
			return nil, service.ErrAlreadyClaimed
		}
		if database.IsRetryable(err) {
			return nil, fmt.Errorf("claim coupon of deal %s: %w", dealID, service.ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("claim coupon of deal %s: %w", dealID, err)
	}
	return c, nil
}
