package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ClaimDeal handles POST /api/deals/:id/claim.
// Business-rule rejections (cap, exhausted pool, duplicate claim) are
// expected under load and logged at debug level only.
func (h *CouponHandler) ClaimDeal(c *fiber.Ctx) error {
	dealID, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	coupon, err := h.service.Claim(c.Context(), dealID, identity.ID)
	if err != nil {
		log.Debug().
			Err(err).
			Str("deal_id", dealID.String()).
			Str("member_id", identity.ID.String()).
			Msg("claim rejected")
		return respondError(c, err)
	}
	return c.JSON(coupon)
}
