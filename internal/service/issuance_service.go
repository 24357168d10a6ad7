package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/hivex-io/hivex/internal/codegen"
	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/pkg/database"
)

// CodeGenerator draws unique coupon codes.
type CodeGenerator interface {
	Generate(ctx context.Context, reserve codegen.ReserveFunc) (string, error)
}

// QRRenderer renders a QR image for a coupon code and names its format.
type QRRenderer interface {
	Render(content string) ([]byte, error)
	ContentType() string
	Extension() string
}

// IssuanceService mints the coupon pool of a deal.
type IssuanceService struct {
	pool       database.TxBeginner
	dealRepo   DealRepositoryInterface
	couponRepo CouponRepositoryInterface
	qrRepo     QRImageRepositoryInterface
	codes      CodeGenerator
	qr         QRRenderer
	now        func() time.Time
}

// NewIssuanceService creates a new IssuanceService.
// A nil renderer disables QR artifacts.
func NewIssuanceService(
	pool database.TxBeginner,
	dealRepo DealRepositoryInterface,
	couponRepo CouponRepositoryInterface,
	qrRepo QRImageRepositoryInterface,
	codes CodeGenerator,
	qr QRRenderer,
) *IssuanceService {
	return &IssuanceService{
		pool:       pool,
		dealRepo:   dealRepo,
		couponRepo: couponRepo,
		qrRepo:     qrRepo,
		codes:      codes,
		qr:         qr,
		now:        time.Now,
	}
}

// Issue mints deal.TotalCreated coupons for dealID in one transaction.
// Either the whole pool is persisted and the deal is marked issued, or
// nothing is. Returns:
//   - ErrNotFound if the deal doesn't exist
//   - ErrForbidden if venueID doesn't own the deal
//   - ErrDealAlreadyIssued if the pool was minted before
//   - ErrValidation if the deal has no coupons to mint
func (s *IssuanceService) Issue(ctx context.Context, dealID, venueID uuid.UUID) ([]*model.Coupon, error) {
	now := s.now()

	var issued []*model.Coupon
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		deal, err := s.dealRepo.GetForUpdate(ctx, tx, dealID)
		if err != nil {
			return err
		}
		if deal.VenueID != venueID {
			return ErrForbidden
		}
		if deal.Issued() {
			return ErrDealAlreadyIssued
		}
		if deal.TotalCreated < 1 {
			return ErrValidation
		}

		issued = make([]*model.Coupon, 0, deal.TotalCreated)
		for i := 0; i < deal.TotalCreated; i++ {
			c, err := s.mint(ctx, tx, deal, now)
			if err != nil {
				return fmt.Errorf("mint coupon %d of %d: %w", i+1, deal.TotalCreated, err)
			}
			issued = append(issued, c)
		}
		return s.dealRepo.MarkIssued(ctx, tx, deal.ID, now)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("deal_id", dealID.String()).
		Int("issued", len(issued)).
		Msg("deal issued")
	return issued, nil
}

// mint inserts one coupon snapshot of deal under a freshly reserved code.
func (s *IssuanceService) mint(ctx context.Context, tx pgx.Tx, deal *model.Deal, now time.Time) (*model.Coupon, error) {
	c := &model.Coupon{
		ID:        uuid.New(),
		Title:     deal.Title,
		Value:     deal.Value,
		Expiry:    deal.Expiry,
		VenueID:   deal.VenueID,
		DealID:    deal.ID,
		Holder:    model.Unassigned(),
		Points:    model.DefaultCouponPoints,
		CreatedAt: now,
	}

	code, err := s.codes.Generate(ctx, func(ctx context.Context, code string) (bool, error) {
		c.Code = code
		return s.couponRepo.InsertIfAbsent(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	c.Code = code

	if s.qr == nil {
		return c, nil
	}

	png, err := s.qr.Render(code)
	if err != nil {
		return nil, fmt.Errorf("render qr for %s: %w", code, err)
	}
	img := &model.QRImage{
		ID:          uuid.New(),
		Filename:    code + s.qr.Extension(),
		ContentType: s.qr.ContentType(),
		Data:        png,
		UploadedAt:  now,
	}
	if err := s.qrRepo.Store(ctx, tx, img); err != nil {
		return nil, err
	}
	if err := s.couponRepo.AttachQR(ctx, tx, c.ID, img.ID); err != nil {
		return nil, err
	}
	c.QRImageID = &img.ID
	return c, nil
}
