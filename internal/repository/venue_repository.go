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

const venueColumns = `id, name, address, email, password_hash, created_at`

// VenueRepository provides data access for venues.
type VenueRepository struct {
	pool database.TxQuerier
}

// NewVenueRepository creates a new VenueRepository with the given pool.
func NewVenueRepository(pool *pgxpool.Pool) *VenueRepository {
	return &VenueRepository{pool: pool}
}

// NewVenueRepositoryWithPool creates a new VenueRepository with a custom pool interface.
func NewVenueRepositoryWithPool(pool database.TxQuerier) *VenueRepository {
	return &VenueRepository{pool: pool}
}

func scanVenue(row pgx.Row) (*model.Venue, error) {
	var v model.Venue
	if err := row.Scan(&v.ID, &v.Name, &v.Address, &v.Email, &v.PasswordHash, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// Insert inserts a new venue.
// Returns service.ErrEmailInUse if the e-mail is registered.
func (r *VenueRepository) Insert(ctx context.Context, v *model.Venue) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO venues (id, name, address, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.Name, v.Address, v.Email, v.PasswordHash, v.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "venues_email_key") {
			return service.ErrEmailInUse
		}
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

// GetByID returns nil, nil if the venue is not found.
func (r *VenueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	v, err := scanVenue(r.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get venue %s: %w", id, err)
	}
	return v, nil
}

// GetByEmail returns nil, nil if no venue has the e-mail.
func (r *VenueRepository) GetByEmail(ctx context.Context, email string) (*model.Venue, error) {
	v, err := scanVenue(r.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get venue by email: %w", err)
	}
	return v, nil
}

// List returns every venue ordered by name.
func (r *VenueRepository) List(ctx context.Context) ([]*model.Venue, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+venueColumns+` FROM venues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	venues := []*model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venue rows: %w", err)
	}
	return venues, nil
}
