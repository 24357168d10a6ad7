package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon pool data access.
type CouponRepositoryInterface interface {
	InsertIfAbsent(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) (bool, error)
	AttachQR(ctx context.Context, tx database.TxQuerier, couponID, imageID uuid.UUID) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*model.Coupon, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error)
	Redeem(ctx context.Context, code string, memberID uuid.UUID, now time.Time) (*model.Coupon, error)
	Analytics(ctx context.Context) ([]model.TitleAnalytics, error)
}

// ClaimRepositoryInterface defines the interface for the claim side of the pool.
type ClaimRepositoryInterface interface {
	GetMembersByDeal(ctx context.Context, dealID uuid.UUID) ([]uuid.UUID, error)
	HasClaimForDeal(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID) (bool, error)
	CountHeld(ctx context.Context, tx database.TxQuerier, memberID uuid.UUID) (int, error)
	ClaimNext(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID, now time.Time) (*model.Coupon, error)
}

// DealRepositoryInterface defines the interface for deal data access.
type DealRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, deal *model.Deal) error
	ReplaceMembers(ctx context.Context, tx database.TxQuerier, dealID uuid.UUID, memberIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Deal, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error)
	ListForMember(ctx context.Context, memberID uuid.UUID, now time.Time) ([]*model.Deal, error)
	Update(ctx context.Context, tx database.TxQuerier, deal *model.Deal) error
	Activate(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkIssued(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) error
}

// MemberRepositoryInterface defines the interface for member data access.
type MemberRepositoryInterface interface {
	Insert(ctx context.Context, member *model.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	GetByEmail(ctx context.Context, email string) (*model.Member, error)
	LockForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*model.Member, error)
}

// VenueRepositoryInterface defines the interface for venue data access.
type VenueRepositoryInterface interface {
	Insert(ctx context.Context, venue *model.Venue) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Venue, error)
	GetByEmail(ctx context.Context, email string) (*model.Venue, error)
	List(ctx context.Context) ([]*model.Venue, error)
}

// QRImageRepositoryInterface defines the interface for QR artifact storage.
type QRImageRepositoryInterface interface {
	Store(ctx context.Context, tx database.TxQuerier, img *model.QRImage) error
	Fetch(ctx context.Context, id uuid.UUID) (*model.QRImage, error)
}
