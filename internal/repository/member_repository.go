package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/internal/service"
	"github.com/hivex-io/hivex/pkg/database"
)

const memberColumns = `id, first_name, last_name, email, password_hash, is_broker, created_at`

// MemberRepository provides data access for members and brokers.
type MemberRepository struct {
	pool database.TxQuerier
}

// NewMemberRepository creates a new MemberRepository with the given pool.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// NewMemberRepositoryWithPool creates a new MemberRepository with a custom pool interface.
// This is primarily used for testing.
func NewMemberRepositoryWithPool(pool database.TxQuerier) *MemberRepository {
	return &MemberRepository{pool: pool}
}

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	if err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.PasswordHash, &m.IsBroker, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert inserts a new member.
// Returns service.ErrEmailInUse if the e-mail is registered.
func (r *MemberRepository) Insert(ctx context.Context, m *model.Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (id, first_name, last_name, email, password_hash, is_broker, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.FirstName, m.LastName, m.Email, m.PasswordHash, m.IsBroker, m.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "members_email_key") {
			return service.ErrEmailInUse
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByID returns nil, nil if the member is not found.
func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member %s: %w", id, err)
	}
	return m, nil
}

// GetByEmail returns nil, nil if no member has the e-mail.
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member by email: %w", err)
	}
	return m, nil
}

// LockForUpdate takes a row lock on the member until the transaction ends.
// Claims by the same member are serialized on this lock.
// Returns service.ErrNotFound if the member doesn't exist.
func (r *MemberRepository) LockForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM members WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("member %s: %w", id, service.ErrNotFound)
		}
		if database.IsRetryable(err) {
			return fmt.Errorf("lock member %s: %w", id, service.ErrConcurrencyConflict)
		}
		return fmt.Errorf("lock member %s: %w", id, err)
	}
	return nil
}

// ListByDeal returns the eligible members of a deal.
func (r *MemberRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*model.Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.first_name, m.last_name, m.email, m.password_hash, m.is_broker, m.created_at
		FROM members m JOIN deal_members dm ON dm.member_id = m.id
		WHERE dm.deal_id = $1 ORDER BY m.email`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list members for deal %s: %w", dealID, err)
	}
	defer rows.Close()

	members := []*model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}
