package model

import (
	"time"

	"github.com/google/uuid"
)

// Deal is a venue-defined discount offer with a fixed coupon supply.
type Deal struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Value        string      `json:"value"`
	Description  string      `json:"description"`
	Expiry       time.Time   `json:"expiry"`
	TotalCreated int         `json:"total_created"`
	IsActive     bool        `json:"is_active"`
	VenueID      uuid.UUID   `json:"venue_id"`
	MemberIDs    []uuid.UUID `json:"member_ids"`
	IssuedAt     *time.Time  `json:"issued_at"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Issued reports whether the coupon pool has been minted for this deal.
// Issued deals are frozen.
func (d *Deal) Issued() bool {
	return d.IssuedAt != nil
}

// ExpiredAt reports whether the deal is past its expiry at now.
func (d *Deal) ExpiredAt(now time.Time) bool {
	return now.After(d.Expiry)
}

// CreateDealRequest is the DTO for creating a deal.
type CreateDealRequest struct {
	Title        string      `json:"title" validate:"required,notblank,max=255"`
	Value        string      `json:"value" validate:"required,notblank,max=255"`
	Description  string      `json:"description" validate:"max=2000"`
	Expiry       *time.Time  `json:"expiry" validate:"required"`
	TotalCreated *int        `json:"total_created" validate:"required,gte=1,lte=10000"`
	MemberIDs    []uuid.UUID `json:"member_ids" validate:"max=1000,dive,notnil_uuid"`
}

// UpdateDealRequest is the DTO for editing a deal before issuance.
// Nil fields are left unchanged.
type UpdateDealRequest struct {
	Title        *string     `json:"title" validate:"omitempty,notblank,max=255"`
	Value        *string     `json:"value" validate:"omitempty,notblank,max=255"`
	Description  *string     `json:"description" validate:"omitempty,max=2000"`
	Expiry       *time.Time  `json:"expiry"`
	TotalCreated *int        `json:"total_created" validate:"omitempty,gte=1,lte=10000"`
	MemberIDs    []uuid.UUID `json:"member_ids" validate:"omitempty,max=1000,dive,notnil_uuid"`
}

// IssueDealResponse is returned after the pool for a deal has been minted.
type IssueDealResponse struct {
	DealID  uuid.UUID `json:"deal_id"`
	Issued  int       `json:"issued"`
	Coupons []*Coupon `json:"coupons"`
}
