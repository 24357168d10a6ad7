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
	"github.com/hivex-io/hivex/internal/notify"
	"github.com/hivex-io/hivex/pkg/database"
)

// Mailer queues outgoing mail without blocking.
type Mailer interface {
	Enqueue(msg notify.Message) bool
}

// DealService manages deals before and after their pool is minted.
type DealService struct {
	pool       database.TxBeginner
	dealRepo   DealRepositoryInterface
	claimRepo  ClaimRepositoryInterface
	memberRepo MemberRepositoryInterface
	mailer     Mailer
	now        func() time.Time
}

// NewDealService creates a new DealService.
func NewDealService(
	pool database.TxBeginner,
	dealRepo DealRepositoryInterface,
	claimRepo ClaimRepositoryInterface,
	memberRepo MemberRepositoryInterface,
	mailer Mailer,
) *DealService {
	return &DealService{
		pool:       pool,
		dealRepo:   dealRepo,
		claimRepo:  claimRepo,
		memberRepo: memberRepo,
		mailer:     mailer,
		now:        time.Now,
	}
}

// Create creates an inactive deal owned by venueID.
// Returns ErrValidation if the request is incomplete or the expiry is not in the future.
// Returns ErrDuplicateTitle if the venue already has a deal with the title.
func (s *DealService) Create(ctx context.Context, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error) {
	// Handlers validate too; services are also called from tests and tools.
	if req == nil || req.Expiry == nil || req.TotalCreated == nil {
		return nil, ErrValidation
	}
	now := s.now()
	if !req.Expiry.After(now) {
		return nil, fmt.Errorf("expiry must be in the future: %w", ErrValidation)
	}

	deal := &model.Deal{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(req.Title),
		Value:        strings.TrimSpace(req.Value),
		Description:  req.Description,
		Expiry:       req.Expiry.UTC(),
		TotalCreated: *req.TotalCreated,
		VenueID:      venueID,
		MemberIDs:    uniqueIDs(req.MemberIDs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return s.dealRepo.Insert(ctx, tx, deal)
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// CreateForVenue creates a deal on behalf of venueID. Brokers only.
// Returns ErrNotFound if the venue doesn't exist.
func (s *DealService) CreateForVenue(ctx context.Context, actor model.Identity, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error) {
	if !actor.IsBroker() {
		return nil, ErrForbidden
	}
	deal, err := s.Create(ctx, venueID, req)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("deal_id", deal.ID.String()).
		Str("venue_id", venueID.String()).
		Str("broker_id", actor.ID.String()).
		Msg("deal created by broker")
	return deal, nil
}

// Get returns a deal with its eligible members.
// Returns ErrNotFound if the deal doesn't exist.
func (s *DealService) Get(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	if deal == nil {
		return nil, ErrNotFound
	}
	return deal, nil
}

// View returns a deal as actor may see it. Brokers and the owning venue
// see all of it. Members see issued, active deals without the eligible
// member list. Returns ErrForbidden for anyone else.
func (s *DealService) View(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error) {
	deal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsBroker():
		return deal, nil
	case actor.IsVenue():
		if deal.VenueID != actor.ID {
			return nil, ErrForbidden
		}
		return deal, nil
	case !deal.Issued() || !deal.IsActive:
		return nil, ErrForbidden
	}
	deal.MemberIDs = nil
	return deal, nil
}

// ListForMember returns the claimable deals memberID is eligible for.
func (s *DealService) ListForMember(ctx context.Context, memberID uuid.UUID) ([]*model.Deal, error) {
	deals, err := s.dealRepo.ListForMember(ctx, memberID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list member deals: %w", err)
	}
	return deals, nil
}

// ListForVenue returns the deals of venueID.
func (s *DealService) ListForVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error) {
	deals, err := s.dealRepo.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return deals, nil
}

// Update edits a deal owned by venueID.
// Title, value, description, expiry and total_created are frozen once the
// pool is minted (ErrDealFrozen); the eligible member list stays editable.
func (s *DealService) Update(ctx context.Context, venueID, id uuid.UUID, req *model.UpdateDealRequest) (*model.Deal, error) {
	if req == nil {
		return nil, ErrValidation
	}
	now := s.now()
	if req.Expiry != nil && !req.Expiry.After(now) {
		return nil, fmt.Errorf("expiry must be in the future: %w", ErrValidation)
	}

	var updated *model.Deal
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		deal, err := s.dealRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if deal.VenueID != venueID {
			return ErrForbidden
		}

		if touchesFrozenFields(req) {
			if deal.Issued() {
				return ErrDealFrozen
			}
			applyDealUpdate(deal, req)
			deal.UpdatedAt = now
			if err := s.dealRepo.Update(ctx, tx, deal); err != nil {
				return err
			}
		}

		if req.MemberIDs != nil {
			deal.MemberIDs = uniqueIDs(req.MemberIDs)
			if err := s.dealRepo.ReplaceMembers(ctx, tx, deal.ID, deal.MemberIDs); err != nil {
				return err
			}
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func touchesFrozenFields(req *model.UpdateDealRequest) bool {
	return req.Title != nil || req.Value != nil || req.Description != nil ||
		req.Expiry != nil || req.TotalCreated != nil
}

func applyDealUpdate(deal *model.Deal, req *model.UpdateDealRequest) {
	if req.Title != nil {
		deal.Title = strings.TrimSpace(*req.Title)
	}
	if req.Value != nil {
		deal.Value = strings.TrimSpace(*req.Value)
	}
	if req.Description != nil {
		deal.Description = *req.Description
	}
	if req.Expiry != nil {
		deal.Expiry = req.Expiry.UTC()
	}
	if req.TotalCreated != nil {
		deal.TotalCreated = *req.TotalCreated
	}
}

// Activate approves a deal so members can claim from it.
// Allowed for brokers and the owning venue.
func (s *DealService) Activate(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error) {
	deal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsBroker() && !(actor.IsVenue() && deal.VenueID == actor.ID) {
		return nil, ErrForbidden
	}

	now := s.now()
	if err := s.dealRepo.Activate(ctx, id, now); err != nil {
		return nil, err
	}
	deal.IsActive = true
	deal.UpdatedAt = now

	log.Info().
		Str("deal_id", id.String()).
		Str("actor_role", string(actor.Role)).
		Msg("deal activated")
	return deal, nil
}

// Send queues an announcement mail to every eligible member of a deal
// owned by venueID. Returns how many mails were queued; delivery happens
// in the background and never fails the request.
func (s *DealService) Send(ctx context.Context, venueID, id uuid.UUID) (int, error) {
	deal, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if deal.VenueID != venueID {
		return 0, ErrForbidden
	}

	members, err := s.memberRepo.ListByDeal(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("list deal members: %w", err)
	}

	queued := 0
	for _, m := range members {
		if s.mailer.Enqueue(dealAnnouncement(deal, m)) {
			queued++
		}
	}
	return queued, nil
}

func dealAnnouncement(deal *model.Deal, m *model.Member) notify.Message {
	name := strings.TrimSpace(m.FirstName)
	if name == "" {
		name = "there"
	}
	return notify.Message{
		To:      m.Email,
		Subject: fmt.Sprintf("New deal: %s", deal.Title),
		Body: fmt.Sprintf("Hi %s,\n\n%s: %s\n%s\n\nDeal %s\nClaim it with POST /api/deals/%s/claim before %s.\n",
			name, deal.Title, deal.Value, deal.Description, deal.ID, deal.ID, deal.Expiry.Format(time.RFC1123)),
	}
}

// Claims returns the members that claimed a coupon of a deal owned by venueID.
func (s *DealService) Claims(ctx context.Context, venueID, id uuid.UUID) ([]uuid.UUID, error) {
	deal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal.VenueID != venueID {
		return nil, ErrForbidden
	}

	members, err := s.claimRepo.GetMembersByDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}
	return members, nil
}

// uniqueIDs drops duplicates and keeps first-seen order. Never returns nil.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
