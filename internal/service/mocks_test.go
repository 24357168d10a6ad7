package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hivex-io/hivex/internal/codegen"
	"github.com/hivex-io/hivex/internal/model"
	"github.com/hivex-io/hivex/internal/notify"
	"github.com/hivex-io/hivex/pkg/database"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// mockTx is a mock implementation of pgx.Tx recording how the transaction ended.
type mockTx struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errors.New("nested tx") }

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *mockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *mockTx) Conn() *pgx.Conn                                               { return nil }

// mockTxBeginner hands out tx, or fails with err.
type mockTxBeginner struct {
	tx  *mockTx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.tx == nil {
		m.tx = &mockTx{}
	}
	return m.tx, nil
}

type mockCouponRepository struct {
	insertIfAbsentFn func(ctx context.Context, tx database.TxQuerier, c *model.Coupon) (bool, error)
	attachQRFn       func(ctx context.Context, tx database.TxQuerier, couponID, imageID uuid.UUID) error
	getByCodeFn      func(ctx context.Context, code string) (*model.Coupon, error)
	listByDealFn     func(ctx context.Context, dealID uuid.UUID) ([]*model.Coupon, error)
	listByMemberFn   func(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error)
	listByVenueFn    func(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error)
	redeemFn         func(ctx context.Context, code string, memberID uuid.UUID, now time.Time) (*model.Coupon, error)
	analyticsFn      func(ctx context.Context) ([]model.TitleAnalytics, error)
}

func (m *mockCouponRepository) InsertIfAbsent(ctx context.Context, tx database.TxQuerier, c *model.Coupon) (bool, error) {
	if m.insertIfAbsentFn != nil {
		return m.insertIfAbsentFn(ctx, tx, c)
	}
	return true, nil
}

func (m *mockCouponRepository) AttachQR(ctx context.Context, tx database.TxQuerier, couponID, imageID uuid.UUID) error {
	if m.attachQRFn != nil {
		return m.attachQRFn(ctx, tx, couponID, imageID)
	}
	return nil
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockCouponRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*model.Coupon, error) {
	if m.listByDealFn != nil {
		return m.listByDealFn(ctx, dealID)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error) {
	if m.listByMemberFn != nil {
		return m.listByMemberFn(ctx, memberID)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponRepository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error) {
	if m.listByVenueFn != nil {
		return m.listByVenueFn(ctx, venueID)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponRepository) Redeem(ctx context.Context, code string, memberID uuid.UUID, now time.Time) (*model.Coupon, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, code, memberID, now)
	}
	return nil, nil
}

func (m *mockCouponRepository) Analytics(ctx context.Context) ([]model.TitleAnalytics, error) {
	if m.analyticsFn != nil {
		return m.analyticsFn(ctx)
	}
	return []model.TitleAnalytics{}, nil
}

type mockClaimRepository struct {
	getMembersByDealFn func(ctx context.Context, dealID uuid.UUID) ([]uuid.UUID, error)
	hasClaimForDealFn  func(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID) (bool, error)
	countHeldFn        func(ctx context.Context, tx database.TxQuerier, memberID uuid.UUID) (int, error)
	claimNextFn        func(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID, now time.Time) (*model.Coupon, error)
}

func (m *mockClaimRepository) GetMembersByDeal(ctx context.Context, dealID uuid.UUID) ([]uuid.UUID, error) {
	if m.getMembersByDealFn != nil {
		return m.getMembersByDealFn(ctx, dealID)
	}
	return []uuid.UUID{}, nil
}

func (m *mockClaimRepository) HasClaimForDeal(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID) (bool, error) {
	if m.hasClaimForDealFn != nil {
		return m.hasClaimForDealFn(ctx, tx, dealID, memberID)
	}
	return false, nil
}

func (m *mockClaimRepository) CountHeld(ctx context.Context, tx database.TxQuerier, memberID uuid.UUID) (int, error) {
	if m.countHeldFn != nil {
		return m.countHeldFn(ctx, tx, memberID)
	}
	return 0, nil
}

func (m *mockClaimRepository) ClaimNext(ctx context.Context, tx database.TxQuerier, dealID, memberID uuid.UUID, now time.Time) (*model.Coupon, error) {
	if m.claimNextFn != nil {
		return m.claimNextFn(ctx, tx, dealID, memberID, now)
	}
	return nil, nil
}

type mockDealRepository struct {
	insertFn         func(ctx context.Context, tx database.TxQuerier, d *model.Deal) error
	replaceMembersFn func(ctx context.Context, tx database.TxQuerier, dealID uuid.UUID, memberIDs []uuid.UUID) error
	getByIDFn        func(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	getForUpdateFn   func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Deal, error)
	listByVenueFn    func(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error)
	listForMemberFn  func(ctx context.Context, memberID uuid.UUID, now time.Time) ([]*model.Deal, error)
	updateFn         func(ctx context.Context, tx database.TxQuerier, d *model.Deal) error
	activateFn       func(ctx context.Context, id uuid.UUID, now time.Time) error
	markIssuedFn     func(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) error
}

func (m *mockDealRepository) Insert(ctx context.Context, tx database.TxQuerier, d *model.Deal) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, d)
	}
	return nil
}

func (m *mockDealRepository) ReplaceMembers(ctx context.Context, tx database.TxQuerier, dealID uuid.UUID, memberIDs []uuid.UUID) error {
	if m.replaceMembersFn != nil {
		return m.replaceMembersFn(ctx, tx, dealID, memberIDs)
	}
	return nil
}

func (m *mockDealRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDealRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Deal, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, ErrNotFound
}

func (m *mockDealRepository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error) {
	if m.listByVenueFn != nil {
		return m.listByVenueFn(ctx, venueID)
	}
	return []*model.Deal{}, nil
}

func (m *mockDealRepository) ListForMember(ctx context.Context, memberID uuid.UUID, now time.Time) ([]*model.Deal, error) {
	if m.listForMemberFn != nil {
		return m.listForMemberFn(ctx, memberID, now)
	}
	return []*model.Deal{}, nil
}

func (m *mockDealRepository) Update(ctx context.Context, tx database.TxQuerier, d *model.Deal) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, tx, d)
	}
	return nil
}

func (m *mockDealRepository) Activate(ctx context.Context, id uuid.UUID, now time.Time) error {
	if m.activateFn != nil {
		return m.activateFn(ctx, id, now)
	}
	return nil
}

func (m *mockDealRepository) MarkIssued(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) error {
	if m.markIssuedFn != nil {
		return m.markIssuedFn(ctx, tx, id, at)
	}
	return nil
}

type mockMemberRepository struct {
	insertFn        func(ctx context.Context, m *model.Member) error
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Member, error)
	getByEmailFn    func(ctx context.Context, email string) (*model.Member, error)
	lockForUpdateFn func(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	listByDealFn    func(ctx context.Context, dealID uuid.UUID) ([]*model.Member, error)
}

func (m *mockMemberRepository) Insert(ctx context.Context, member *model.Member) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, member)
	}
	return nil
}

func (m *mockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMemberRepository) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockMemberRepository) LockForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if m.lockForUpdateFn != nil {
		return m.lockForUpdateFn(ctx, tx, id)
	}
	return nil
}

func (m *mockMemberRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*model.Member, error) {
	if m.listByDealFn != nil {
		return m.listByDealFn(ctx, dealID)
	}
	return []*model.Member{}, nil
}

type mockVenueRepository struct {
	insertFn     func(ctx context.Context, v *model.Venue) error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*model.Venue, error)
	getByEmailFn func(ctx context.Context, email string) (*model.Venue, error)
	listFn       func(ctx context.Context) ([]*model.Venue, error)
}

func (m *mockVenueRepository) Insert(ctx context.Context, v *model.Venue) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, v)
	}
	return nil
}

func (m *mockVenueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockVenueRepository) GetByEmail(ctx context.Context, email string) (*model.Venue, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockVenueRepository) List(ctx context.Context) ([]*model.Venue, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Venue{}, nil
}

type mockQRImageRepository struct {
	storeFn func(ctx context.Context, tx database.TxQuerier, img *model.QRImage) error
	fetchFn func(ctx context.Context, id uuid.UUID) (*model.QRImage, error)
}

func (m *mockQRImageRepository) Store(ctx context.Context, tx database.TxQuerier, img *model.QRImage) error {
	if m.storeFn != nil {
		return m.storeFn(ctx, tx, img)
	}
	return nil
}

func (m *mockQRImageRepository) Fetch(ctx context.Context, id uuid.UUID) (*model.QRImage, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, id)
	}
	return nil, nil
}

// sequenceCodes hands out codes in order and offers each to reserve until one is accepted.
type sequenceCodes struct {
	codes []string
	next  int
}

func (s *sequenceCodes) Generate(ctx context.Context, reserve codegen.ReserveFunc) (string, error) {
	for s.next < len(s.codes) {
		code := s.codes[s.next]
		s.next++
		ok, err := reserve(ctx, code)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", codegen.ErrCodeSpaceExhausted
}

type mockRenderer struct {
	renderFn    func(content string) ([]byte, error)
	contentType string
	extension   string
}

func (m *mockRenderer) ContentType() string {
	if m.contentType != "" {
		return m.contentType
	}
	return "image/png"
}

func (m *mockRenderer) Extension() string {
	if m.extension != "" {
		return m.extension
	}
	return ".png"
}

func (m *mockRenderer) Render(content string) ([]byte, error) {
	if m.renderFn != nil {
		return m.renderFn(content)
	}
	return []byte("png:" + content), nil
}

type mockMailer struct {
	sent   []notify.Message
	accept bool
}

func (m *mockMailer) Enqueue(msg notify.Message) bool {
	if !m.accept {
		return false
	}
	m.sent = append(m.sent, msg)
	return true
}

type mockTokens struct {
	issued []model.Identity
	err    error
}

func (m *mockTokens) Issue(identity model.Identity) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.issued = append(m.issued, identity)
	return "token-" + string(identity.Role), nil
}

// liveDeal returns an issued, active deal expiring a day after fixedNow.
func liveDeal() *model.Deal {
	issuedAt := fixedNow.Add(-time.Hour)
	return &model.Deal{
		ID:           uuid.New(),
		Title:        "Two for one",
		Value:        "50%",
		Expiry:       fixedNow.Add(24 * time.Hour),
		TotalCreated: 3,
		IsActive:     true,
		VenueID:      uuid.New(),
		MemberIDs:    []uuid.UUID{},
		IssuedAt:     &issuedAt,
		CreatedAt:    fixedNow.Add(-2 * time.Hour),
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
}

func couponFor(deal *model.Deal, code string) *model.Coupon {
	return &model.Coupon{
		ID:        uuid.New(),
		Code:      code,
		Title:     deal.Title,
		Value:     deal.Value,
		Expiry:    deal.Expiry,
		VenueID:   deal.VenueID,
		DealID:    deal.ID,
		Holder:    model.Unassigned(),
		Points:    model.DefaultCouponPoints,
		CreatedAt: fixedNow,
	}
}
