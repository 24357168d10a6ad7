package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hivex-io/hivex/internal/model"
)

// DealServiceInterface defines the interface for deal business logic.
type DealServiceInterface interface {
	Create(ctx context.Context, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error)
	CreateForVenue(ctx context.Context, actor model.Identity, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error)
	View(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error)
	ListForVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error)
	ListForMember(ctx context.Context, memberID uuid.UUID) ([]*model.Deal, error)
	Update(ctx context.Context, venueID, id uuid.UUID, req *model.UpdateDealRequest) (*model.Deal, error)
	Activate(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error)
	Send(ctx context.Context, venueID, id uuid.UUID) (int, error)
	Claims(ctx context.Context, venueID, id uuid.UUID) ([]uuid.UUID, error)
}

// IssuanceServiceInterface defines the interface for minting a deal's pool.
type IssuanceServiceInterface interface {
	Issue(ctx context.Context, dealID, venueID uuid.UUID) ([]*model.Coupon, error)
}

// DealHandler handles HTTP requests for deal operations.
type DealHandler struct {
	deals     DealServiceInterface
	issuance  IssuanceServiceInterface
	validator *validator.Validate
}

// NewDealHandler creates a new DealHandler.
func NewDealHandler(deals DealServiceInterface, issuance IssuanceServiceInterface, v *validator.Validate) *DealHandler {
	return &DealHandler{deals: deals, issuance: issuance, validator: v}
}

func invalidDealID(c *fiber.Ctx) error {
	return badRequest(c, "invalid request: deal id must be a uuid")
}

// CreateDeal handles POST /api/deals.
func (h *DealHandler) CreateDeal(c *fiber.Ctx) error {
	var req model.CreateDealRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	identity, _ := identityFrom(c)
	deal, err := h.deals.Create(c.Context(), identity.ID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(deal)
}

// CreateVenueDeal handles POST /api/venues/:id/deals (brokers).
func (h *DealHandler) CreateVenueDeal(c *fiber.Ctx) error {
	venueID, ok := uuidParam(c, "id")
	if !ok {
		return badRequest(c, "invalid request: venue id must be a uuid")
	}
	var req model.CreateDealRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	identity, _ := identityFrom(c)
	deal, err := h.deals.CreateForVenue(c.Context(), identity, venueID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(deal)
}

// MemberDeals handles GET /api/member/deals.
func (h *DealHandler) MemberDeals(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	deals, err := h.deals.ListForMember(c.Context(), identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deals)
}

// ListDeals handles GET /api/deals for the calling venue.
func (h *DealHandler) ListDeals(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	deals, err := h.deals.ListForVenue(c.Context(), identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deals)
}

// GetDeal handles GET /api/deals/:id.
func (h *DealHandler) GetDeal(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	deal, err := h.deals.View(c.Context(), identity, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deal)
}

// UpdateDeal handles PATCH /api/deals/:id.
func (h *DealHandler) UpdateDeal(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}
	var req model.UpdateDealRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	identity, _ := identityFrom(c)
	deal, err := h.deals.Update(c.Context(), identity.ID, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deal)
}

// ActivateDeal handles POST /api/deals/:id/activate.
func (h *DealHandler) ActivateDeal(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	deal, err := h.deals.Activate(c.Context(), identity, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deal)
}

// IssueDeal handles POST /api/deals/:id/issue.
func (h *DealHandler) IssueDeal(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	coupons, err := h.issuance.Issue(c.Context(), id, identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(model.IssueDealResponse{
		DealID:  id,
		Issued:  len(coupons),
		Coupons: coupons,
	})
}

// SendDeal handles POST /api/deals/:id/send.
func (h *DealHandler) SendDeal(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	queued, err := h.deals.Send(c.Context(), identity.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued})
}

// DealClaims handles GET /api/deals/:id/claims.
func (h *DealHandler) DealClaims(c *fiber.Ctx) error {
	id, ok := uuidParam(c, "id")
	if !ok {
		return invalidDealID(c)
	}

	identity, _ := identityFrom(c)
	members, err := h.deals.Claims(c.Context(), identity.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deal_id": id, "claimed_by": members})
}
