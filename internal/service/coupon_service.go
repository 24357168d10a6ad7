package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/pkg/database"
)

// CouponService claims, redeems and reads coupons of the pool.
type CouponService struct {
	pool         database.TxBeginner
	couponRepo   CouponRepositoryInterface
	claimRepo    ClaimRepositoryInterface
	dealRepo     DealRepositoryInterface
	memberRepo   MemberRepositoryInterface
	qrRepo       QRImageRepositoryInterface
	maxPerMember int
	now          func() time.Time
}

// NewCouponService creates a new CouponService.
// maxPerMember is the number of coupons a member may hold across all deals.
func NewCouponService(
	pool database.TxBeginner,
	couponRepo CouponRepositoryInterface,
	claimRepo ClaimRepositoryInterface,
	dealRepo DealRepositoryInterface,
	memberRepo MemberRepositoryInterface,
	qrRepo QRImageRepositoryInterface,
	maxPerMember int,
) *CouponService {
	return &CouponService{
		pool:         pool,
		couponRepo:   couponRepo,
		claimRepo:    claimRepo,
		dealRepo:     dealRepo,
		memberRepo:   memberRepo,
		qrRepo:       qrRepo,
		maxPerMember: maxPerMember,
		now:          time.Now,
	}
}

// Claim assigns the next unclaimed coupon of dealID to memberID.
// Runs in one transaction that locks the member row, so the per-deal and
// cap checks cannot interleave with another claim by the same member.
// Returns:
//   - ErrNotFound if the deal or member doesn't exist
//   - ErrDealInactive if the deal is not issued or not activated
//   - ErrExpired if the deal is past its expiry
//   - ErrAlreadyClaimed if the member holds a coupon of this deal
//   - ErrCapExceeded if the member holds maxPerMember coupons
//   - ErrPoolExhausted if no unclaimed coupon remains
func (s *CouponService) Claim(ctx context.Context, dealID, memberID uuid.UUID) (*model.Coupon, error) {
	now := s.now()

	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	if deal == nil {
		return nil, ErrNotFound
	}
	if !deal.Issued() || !deal.IsActive {
		return nil, ErrDealInactive
	}
	if deal.ExpiredAt(now) {
		return nil, ErrExpired
	}

	var claimed *model.Coupon
	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.memberRepo.LockForUpdate(ctx, tx, memberID); err != nil {
			return err
		}

		has, err := s.claimRepo.HasClaimForDeal(ctx, tx, dealID, memberID)
		if err != nil {
			return err
		}
		if has {
			return ErrAlreadyClaimed
		}

		held, err := s.claimRepo.CountHeld(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if held >= s.maxPerMember {
			return ErrCapExceeded
		}

		c, err := s.claimRepo.ClaimNext(ctx, tx, dealID, memberID, now)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrPoolExhausted
		}
		claimed = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("deal_id", dealID.String()).
		Str("member_id", memberID.String()).
		Str("code", claimed.Code).
		Msg("coupon claimed")
	return claimed, nil
}

// Redeem marks the coupon with the given code redeemed by memberID.
// The write is a single conditional update. When it matches nothing the
// coupon is re-read and the first failing condition is reported, in order:
// ErrNotFound, ErrNotOwned, ErrExpired, ErrAlreadyRedeemed. If the re-read
// passes every check the update lost a race and ErrConcurrencyConflict is
// returned; the caller must re-read before trying again.
func (s *CouponService) Redeem(ctx context.Context, code string, memberID uuid.UUID) (*model.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrValidation
	}
	now := s.now()

	redeemed, err := s.couponRepo.Redeem(ctx, code, memberID, now)
	if err != nil {
		return nil, err
	}
	if redeemed != nil {
		log.Debug().
			Str("member_id", memberID.String()).
			Str("code", code).
			Msg("coupon redeemed")
		return redeemed, nil
	}

	current, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("re-read coupon: %w", err)
	}
	return nil, redeemFailure(current, memberID, now)
}

func redeemFailure(c *model.Coupon, memberID uuid.UUID, now time.Time) error {
	switch {
	case c == nil:
		return ErrNotFound
	case !c.Holder.IsAssignedTo(memberID):
		return ErrNotOwned
	case c.ExpiredAt(now):
		return ErrExpired
	case c.Redeemed:
		return ErrAlreadyRedeemed
	default:
		return ErrConcurrencyConflict
	}
}

// GetByCode returns a live coupon readable by actor.
// Returns ErrNotFound if absent, ErrForbidden if actor may not read it
// and ErrExpired once past its expiry.
func (s *CouponService) GetByCode(ctx context.Context, actor model.Identity, code string) (*model.Coupon, error) {
	c, err := s.visibleCoupon(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if c.ExpiredAt(s.now()) {
		return nil, ErrExpired
	}
	return c, nil
}

// visibleCoupon loads a coupon readable by actor: brokers, the issuing
// venue and the holder. Returns ErrNotFound or ErrForbidden otherwise.
func (s *CouponService) visibleCoupon(ctx context.Context, actor model.Identity, code string) (*model.Coupon, error) {
	c, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}

	var allowed bool
	switch {
	case actor.IsBroker():
		allowed = true
	case actor.IsVenue():
		allowed = c.VenueID == actor.ID
	default:
		allowed = c.Holder.IsAssignedTo(actor.ID)
	}
	if !allowed {
		return nil, ErrForbidden
	}
	return c, nil
}

// ListForDeal returns the whole pool of a deal owned by venueID, in issue order.
func (s *CouponService) ListForDeal(ctx context.Context, venueID, dealID uuid.UUID) ([]*model.Coupon, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	if deal == nil {
		return nil, ErrNotFound
	}
	if deal.VenueID != venueID {
		return nil, ErrForbidden
	}

	coupons, err := s.couponRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("list deal coupons: %w", err)
	}
	return coupons, nil
}

// ListForMember returns the coupons held by memberID.
func (s *CouponService) ListForMember(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error) {
	coupons, err := s.couponRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member coupons: %w", err)
	}
	return coupons, nil
}

// ListForVenue returns every coupon minted for venueID.
func (s *CouponService) ListForVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error) {
	coupons, err := s.couponRepo.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("list venue coupons: %w", err)
	}
	return coupons, nil
}

// QRImage returns the stored QR artifact of a coupon.
// Returns ErrNotFound if the coupon or its image doesn't exist.
func (s *CouponService) QRImage(ctx context.Context, actor model.Identity, code string) (*model.QRImage, error) {
	c, err := s.visibleCoupon(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	if c.QRImageID == nil {
		return nil, ErrNotFound
	}

	img, err := s.qrRepo.Fetch(ctx, *c.QRImageID)
	if err != nil {
		return nil, fmt.Errorf("fetch qr image: %w", err)
	}
	if img == nil {
		return nil, ErrNotFound
	}
	return img, nil
}

// Analytics summarizes coupon usage per title. Brokers only.
func (s *CouponService) Analytics(ctx context.Context, actor model.Identity) ([]model.TitleAnalytics, error) {
	if !actor.IsBroker() {
		return nil, ErrForbidden
	}

	stats, err := s.couponRepo.Analytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("coupon analytics: %w", err)
	}
	for i := range stats {
		if stats[i].Count > 0 {
			stats[i].RedemptionRate = float64(stats[i].Redeemed) / float64(stats[i].Count)
		}
	}
	return stats, nil
}
