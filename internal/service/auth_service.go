package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hivex-io/hivex/internal/model"
)

// TokenIssuer signs session tokens for an identity.
type TokenIssuer interface {
	Issue(identity model.Identity) (string, error)
}

// AuthService signs members, brokers and venues up and in.
type AuthService struct {
	memberRepo MemberRepositoryInterface
	venueRepo  VenueRepositoryInterface
	tokens     TokenIssuer
	cost       int
	now        func() time.Time
}

// NewAuthService creates a new AuthService hashing passwords with bcrypt.DefaultCost.
func NewAuthService(memberRepo MemberRepositoryInterface, venueRepo VenueRepositoryInterface, tokens TokenIssuer) *AuthService {
	return &AuthService{
		memberRepo: memberRepo,
		venueRepo:  venueRepo,
		tokens:     tokens,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		// The validator bounds runes; bcrypt bounds bytes.
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("password exceeds 72 bytes: %w", ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func checkPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return ErrInvalidCredentials
	}
	return fmt.Errorf("compare password: %w", err)
}

// SignupMember registers a member, or a broker when broker is set.
// Returns ErrEmailInUse if the e-mail is registered.
func (s *AuthService) SignupMember(ctx context.Context, req *model.MemberSignupRequest, broker bool) (*model.MemberAuthResponse, error) {
	if req == nil {
		return nil, ErrValidation
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	m := &model.Member{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		IsBroker:     broker,
		CreatedAt:    s.now(),
	}
	if err := s.memberRepo.Insert(ctx, m); err != nil {
		return nil, err
	}
	return s.memberSession(m)
}

// SigninMember authenticates a member or broker.
// Returns ErrInvalidCredentials for an unknown e-mail or a wrong password.
func (s *AuthService) SigninMember(ctx context.Context, req *model.SigninRequest) (*model.MemberAuthResponse, error) {
	if req == nil {
		return nil, ErrValidation
	}
	m, err := s.memberRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if m == nil {
		return nil, ErrInvalidCredentials
	}
	if err := checkPassword(m.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	return s.memberSession(m)
}

func (s *AuthService) memberSession(m *model.Member) (*model.MemberAuthResponse, error) {
	role := model.RoleMember
	if m.IsBroker {
		role = model.RoleBroker
	}
	token, err := s.tokens.Issue(model.Identity{ID: m.ID, Role: role})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.MemberAuthResponse{Token: token, Member: m}, nil
}

// SignupVenue registers a venue.
// Returns ErrEmailInUse if the e-mail is registered.
func (s *AuthService) SignupVenue(ctx context.Context, req *model.VenueSignupRequest) (*model.VenueAuthResponse, error) {
	v, err := s.createVenue(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.venueSession(v)
}

// SigninVenue authenticates a venue.
func (s *AuthService) SigninVenue(ctx context.Context, req *model.SigninRequest) (*model.VenueAuthResponse, error) {
	if req == nil {
		return nil, ErrValidation
	}
	v, err := s.venueRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	if v == nil {
		return nil, ErrInvalidCredentials
	}
	if err := checkPassword(v.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	return s.venueSession(v)
}

func (s *AuthService) venueSession(v *model.Venue) (*model.VenueAuthResponse, error) {
	token, err := s.tokens.Issue(model.Identity{ID: v.ID, Role: model.RoleVenue})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.VenueAuthResponse{Token: token, Venue: v}, nil
}

func (s *AuthService) createVenue(ctx context.Context, req *model.VenueSignupRequest) (*model.Venue, error) {
	if req == nil {
		return nil, ErrValidation
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	v := &model.Venue{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Address:      strings.TrimSpace(req.Address),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.venueRepo.Insert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// AddVenue registers a venue on behalf of a broker.
func (s *AuthService) AddVenue(ctx context.Context, actor model.Identity, req *model.VenueSignupRequest) (*model.Venue, error) {
	if !actor.IsBroker() {
		return nil, ErrForbidden
	}
	return s.createVenue(ctx, req)
}

// ListVenues returns every venue. Brokers only.
func (s *AuthService) ListVenues(ctx context.Context, actor model.Identity) ([]*model.Venue, error) {
	if !actor.IsBroker() {
		return nil, ErrForbidden
	}
	venues, err := s.venueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

// Member returns the member behind id.
func (s *AuthService) Member(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	m, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

// Venue returns the venue behind id.
func (s *AuthService) Venue(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	v, err := s.venueRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}
