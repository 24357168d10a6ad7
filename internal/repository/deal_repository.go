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

const (
	dealColumns = `id, title, value, description, expiry, total_created, is_active, venue_id,
	issued_at, created_at, updated_at`

	qualifiedDealColumns = `d.id, d.title, d.value, d.description, d.expiry, d.total_created, d.is_active,
	d.venue_id, d.issued_at, d.created_at, d.updated_at`

	dealTitleConstraint = "deals_venue_title_key"
)

// DealRepository provides data access for deals and their eligible members.
type DealRepository struct {
	pool database.TxQuerier
}

// NewDealRepository creates a new DealRepository with the given pool.
func NewDealRepository(pool *pgxpool.Pool) *DealRepository {
	return &DealRepository{pool: pool}
}

// NewDealRepositoryWithPool creates a new DealRepository with a custom pool interface.
// This is primarily used for testing.
func NewDealRepositoryWithPool(pool database.TxQuerier) *DealRepository {
	return &DealRepository{pool: pool}
}

func scanDeal(row pgx.Row) (*model.Deal, error) {
	var d model.Deal
	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Value,
		&d.Description,
		&d.Expiry,
		&d.TotalCreated,
		&d.IsActive,
		&d.VenueID,
		&d.IssuedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.MemberIDs = []uuid.UUID{}
	return &d, nil
}

// Insert inserts a deal and its eligible members within a transaction.
// Returns service.ErrDuplicateTitle if the venue already has a deal with the title.
func (r *DealRepository) Insert(ctx context.Context, tx database.TxQuerier, d *model.Deal) error {
	query := `INSERT INTO deals (id, title, value, description, expiry, total_created, is_active, venue_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	_, err := tx.Exec(ctx, query,
		d.ID, d.Title, d.Value, d.Description, d.Expiry, d.TotalCreated, d.IsActive, d.VenueID, d.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, dealTitleConstraint) {
			return service.ErrDuplicateTitle
		}
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("venue %s: %w", d.VenueID, service.ErrNotFound)
		}
		return fmt.Errorf("insert deal: %w", err)
	}
	return r.insertMembers(ctx, tx, d.ID, d.MemberIDs)
}

// ReplaceMembers overwrites the eligible member list of a deal.
func (r *DealRepository) ReplaceMembers(ctx context.Context, tx database.TxQuerier, dealID uuid.UUID, memberIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM deal_members WHERE deal_id = $1`, dealID); err != nil {
		return fmt.Errorf("clear deal members: %w", err)
	}
	return r.insertMembers(ctx, tx, dealID, memberIDs)
}

func (r *DealRepository) insertMembers(ctx context.Context, tx database.TxQuerier, dealID uuid.UUID, memberIDs []uuid.UUID) error {
	for _, memberID := range memberIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO deal_members (deal_id, member_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			dealID, memberID)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return fmt.Errorf("member %s: %w", memberID, service.ErrValidation)
			}
			return fmt.Errorf("insert deal member: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a deal with its eligible members.
// Returns nil, nil if the deal is not found (service layer handles this).
func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	d, err := scanDeal(r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deal %s: %w", id, err)
	}
	if d.MemberIDs, err = r.memberIDs(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return d, nil
}

// GetForUpdate retrieves a deal with a row lock (SELECT FOR UPDATE).
// Returns service.ErrNotFound if the deal doesn't exist.
func (r *DealRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Deal, error) {
	d, err := scanDeal(tx.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("deal %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("get deal for update %s: %w", id, err)
	}
	if d.MemberIDs, err = r.memberIDs(ctx, tx, id); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DealRepository) memberIDs(ctx context.Context, q database.TxQuerier, dealID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `SELECT member_id FROM deal_members WHERE deal_id = $1 ORDER BY member_id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("get deal members %s: %w", dealID, err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deal member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal member rows: %w", err)
	}
	return ids, nil
}

// ListByVenue returns the deals of a venue, newest first. Member lists are not loaded.
func (r *DealRepository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE venue_id = $1 ORDER BY created_at DESC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("list deals for venue %s: %w", venueID, err)
	}
	return collectDeals(rows)
}

func collectDeals(rows pgx.Rows) ([]*model.Deal, error) {
	defer rows.Close()

	deals := []*model.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal rows: %w", err)
	}
	return deals, nil
}

// ListForMember returns the claimable deals a member is eligible for:
// issued, active and not expired at now, soonest expiry first.
// Member lists are not loaded.
func (r *DealRepository) ListForMember(ctx context.Context, memberID uuid.UUID, now time.Time) ([]*model.Deal, error) {
	query := `SELECT ` + qualifiedDealColumns + `
		FROM deals d
		JOIN deal_members dm ON dm.deal_id = d.id
		WHERE dm.member_id = $1
		  AND d.is_active
		  AND d.issued_at IS NOT NULL
		  AND d.expiry >= $2
		ORDER BY d.expiry, d.id`

	rows, err := r.pool.Query(ctx, query, memberID, now)
	if err != nil {
		return nil, fmt.Errorf("list deals for member %s: %w", memberID, err)
	}
	return collectDeals(rows)
}

// Update writes the editable fields of a deal.
// The update is guarded by issued_at IS NULL so an issued deal stays frozen
// even if issuance commits between the caller's read and this write.
func (r *DealRepository) Update(ctx context.Context, tx database.TxQuerier, d *model.Deal) error {
	query := `UPDATE deals
		SET title = $2, value = $3, description = $4, expiry = $5, total_created = $6, updated_at = $7
		WHERE id = $1 AND issued_at IS NULL`

	tag, err := tx.Exec(ctx, query,
		d.ID, d.Title, d.Value, d.Description, d.Expiry, d.TotalCreated, d.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, dealTitleConstraint) {
			return service.ErrDuplicateTitle
		}
		return fmt.Errorf("update deal %s: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrDealFrozen
	}
	return nil
}

// Activate sets is_active. Returns service.ErrNotFound if the deal doesn't exist.
func (r *DealRepository) Activate(ctx context.Context, id uuid.UUID, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE deals SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("activate deal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deal %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// MarkIssued records that the pool of a deal has been minted.
// Returns service.ErrDealAlreadyIssued if it was marked before.
func (r *DealRepository) MarkIssued(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE deals SET issued_at = $2, updated_at = $2 WHERE id = $1 AND issued_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("mark deal %s issued: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrDealAlreadyIssued
	}
	return nil
}
