package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hivex-io/hivex/internal/model"
)

// AuthServiceInterface defines the interface for account business logic.
type AuthServiceInterface interface {
	SignupMember(ctx context.Context, req *model.MemberSignupRequest, broker bool) (*model.MemberAuthResponse, error)
	SigninMember(ctx context.Context, req *model.SigninRequest) (*model.MemberAuthResponse, error)
	SignupVenue(ctx context.Context, req *model.VenueSignupRequest) (*model.VenueAuthResponse, error)
	SigninVenue(ctx context.Context, req *model.SigninRequest) (*model.VenueAuthResponse, error)
	AddVenue(ctx context.Context, actor model.Identity, req *model.VenueSignupRequest) (*model.Venue, error)
	ListVenues(ctx context.Context, actor model.Identity) ([]*model.Venue, error)
	Member(ctx context.Context, id uuid.UUID) (*model.Member, error)
	Venue(ctx context.Context, id uuid.UUID) (*model.Venue, error)
}

// AuthHandler handles account sign up, sign in and profile requests.
type AuthHandler struct {
	service   AuthServiceInterface
	validator *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given service and validator.
func NewAuthHandler(svc AuthServiceInterface, v *validator.Validate) *AuthHandler {
	return &AuthHandler{service: svc, validator: v}
}

// SignupMember handles POST /api/members/signup.
func (h *AuthHandler) SignupMember(c *fiber.Ctx) error {
	return h.signupMember(c, false)
}

// SignupBroker handles POST /api/brokers/signup.
func (h *AuthHandler) SignupBroker(c *fiber.Ctx) error {
	return h.signupMember(c, true)
}

func (h *AuthHandler) signupMember(c *fiber.Ctx, broker bool) error {
	var req model.MemberSignupRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	resp, err := h.service.SignupMember(c.Context(), &req, broker)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("member_id", resp.Member.ID.String()).
		Bool("broker", broker).
		Msg("member signed up")
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// SigninMember handles POST /api/members/signin for members and brokers.
func (h *AuthHandler) SigninMember(c *fiber.Ctx) error {
	var req model.SigninRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	resp, err := h.service.SigninMember(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// SignupVenue handles POST /api/venues/signup.
func (h *AuthHandler) SignupVenue(c *fiber.Ctx) error {
	var req model.VenueSignupRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	resp, err := h.service.SignupVenue(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().Str("venue_id", resp.Venue.ID.String()).Msg("venue signed up")
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// SigninVenue handles POST /api/venues/signin.
func (h *AuthHandler) SigninVenue(c *fiber.Ctx) error {
	var req model.SigninRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	resp, err := h.service.SigninVenue(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// MemberProfile handles GET /api/members/profile.
func (h *AuthHandler) MemberProfile(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	m, err := h.service.Member(c.Context(), identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(m)
}

// VenueProfile handles GET /api/venues/profile.
func (h *AuthHandler) VenueProfile(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	v, err := h.service.Venue(c.Context(), identity.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(v)
}

// ListVenues handles GET /api/venues (brokers).
func (h *AuthHandler) ListVenues(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)
	venues, err := h.service.ListVenues(c.Context(), identity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(venues)
}

// AddVenue handles POST /api/venues (brokers).
func (h *AuthHandler) AddVenue(c *fiber.Ctx) error {
	var req model.VenueSignupRequest
	if ok, err := bind(c, h.validator, &req); !ok {
		return err
	}

	identity, _ := identityFrom(c)
	v, err := h.service.AddVenue(c.Context(), identity, &req)
	if err != nil {
		return respondError(c, err)
	}

	log.Info().
		Str("venue_id", v.ID.String()).
		Str("broker_id", identity.ID.String()).
		Msg("venue added by broker")
	return c.Status(fiber.StatusCreated).JSON(v)
}
