package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hivex-io/hivex/internal/model"
)

// CouponServiceInterface defines the interface for coupon business logic.
type CouponServiceInterface interface {
	Claim(ctx context.Context, dealID, memberID uuid.UUID) (*model.Coupon, error)
	Redeem(ctx context.Context, code string, memberID uuid.UUID) (*model.Coupon, error)
	GetByCode(ctx context.Context, actor model.Identity, code string) (*model.Coupon, error)
	ListForDeal(ctx context.Context, venueID, dealID uuid.UUID) ([]*model.Coupon, error)
	ListForMember(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error)
	ListForVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error)
	QRImage(ctx context.Context, actor model.Identity, code string) (*model.QRImage, error)
	Analytics(ctx context.Context, actor model.Identity) ([]model.TitleAnalytics, error)
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// RedeemCoupon handles POST /api/coupons/redeem.
func (h *CouponHandler) RedeemCoupon(c *fiber.Ctx) error {
	var req model.RedeemCouponRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	identity, _ := identityFrom(c)
	coupon, err := h.service.Redeem(c.Context(), req.Code, identity.ID)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("code", coupon.Code).
		Str("member_id", identity.ID.String()).
		Msg("coupon redeemed")
	return c.JSON(model.RedeemCouponResponse{
		Success: true,
		Message: "coupon redeemed",
		Coupon:  coupon,
	})
}

// GetCoupon handles GET /api/coupons/:code.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return badRequest(c, "invalid request: code is required")
	}

	identity, _ := identityFrom(c)
	coupon, err := h.service.GetByCode(c.Context(), identity, code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(coupon)
}

// CouponQR handles GET /api/coupons/:code/qr and serves the stored PNG.
func (h *CouponHandler) CouponQR(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	img, err := h.service.QRImage(c.Context(), identity, c.Params("code"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, img.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+img.Filename+`"`)
	return c.Send(img.Data)
}

// DealCoupons handles GET /api/deals/:id/coupons for the owning venue.
func (h *CouponHandler) DealCoupons(c *fiber.Ctx) error {
	dealID, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	coupons, err := h.service.ListForDeal(c.Context(), identity.ID, dealID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(coupons)
}

// MemberCoupons handles GET /api/member/coupons.
func (h *CouponHandler) MemberCoupons(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	coupons, err := h.service.ListForMember(c.Context(), identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(coupons)
}

// VenueCoupons handles GET /api/coupons for the calling venue.
func (h *CouponHandler) VenueCoupons(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	coupons, err := h.service.ListForVenue(c.Context(), identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(coupons)
}

// Analytics handles GET /api/analytics (brokers).
func (h *CouponHandler) Analytics(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	stats, err := h.service.Analytics(c.Context(), identity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
