package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hivex-io/hivex/internal/model"
	appvalidator "github.com/hivex-io/hivex/internal/validator"
)

var (
	testMemberID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testBrokerID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testVenueID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	testDealID   = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

const (
	memberToken = "member-token"
	brokerToken = "broker-token"
	venueToken  = "venue-token"
)

// mockTokens implements TokenVerifier over a fixed token table.
type mockTokens map[string]model.Identity

func (m mockTokens) Verify(token string) (model.Identity, error) {
	if id, ok := m[token]; ok {
		return id, nil
	}
	return model.Identity{}, errors.New("invalid token")
}

func testTokens() mockTokens {
	return mockTokens{
		memberToken: {ID: testMemberID, Role: model.RoleMember},
		brokerToken: {ID: testBrokerID, Role: model.RoleBroker},
		venueToken:  {ID: testVenueID, Role: model.RoleVenue},
	}
}

// mockAuthService is a mock implementation of AuthServiceInterface.
type mockAuthService struct {
	signupMemberFn func(ctx context.Context, req *model.MemberSignupRequest, broker bool) (*model.MemberAuthResponse, error)
	signinMemberFn func(ctx context.Context, req *model.SigninRequest) (*model.MemberAuthResponse, error)
	signupVenueFn  func(ctx context.Context, req *model.VenueSignupRequest) (*model.VenueAuthResponse, error)
	signinVenueFn  func(ctx context.Context, req *model.SigninRequest) (*model.VenueAuthResponse, error)
	addVenueFn     func(ctx context.Context, actor model.Identity, req *model.VenueSignupRequest) (*model.Venue, error)
	listVenuesFn   func(ctx context.Context, actor model.Identity) ([]*model.Venue, error)
	memberFn       func(ctx context.Context, id uuid.UUID) (*model.Member, error)
	venueFn        func(ctx context.Context, id uuid.UUID) (*model.Venue, error)
}

func (m *mockAuthService) SignupMember(ctx context.Context, req *model.MemberSignupRequest, broker bool) (*model.MemberAuthResponse, error) {
	if m.signupMemberFn != nil {
		return m.signupMemberFn(ctx, req, broker)
	}
	return &model.MemberAuthResponse{Token: "t", Member: &model.Member{ID: uuid.New(), Email: req.Email, IsBroker: broker}}, nil
}

func (m *mockAuthService) SigninMember(ctx context.Context, req *model.SigninRequest) (*model.MemberAuthResponse, error) {
	if m.signinMemberFn != nil {
		return m.signinMemberFn(ctx, req)
	}
	return &model.MemberAuthResponse{Token: "t", Member: &model.Member{ID: testMemberID}}, nil
}

func (m *mockAuthService) SignupVenue(ctx context.Context, req *model.VenueSignupRequest) (*model.VenueAuthResponse, error) {
	if m.signupVenueFn != nil {
		return m.signupVenueFn(ctx, req)
	}
	return &model.VenueAuthResponse{Token: "t", Venue: &model.Venue{ID: uuid.New(), Name: req.Name}}, nil
}

func (m *mockAuthService) SigninVenue(ctx context.Context, req *model.SigninRequest) (*model.VenueAuthResponse, error) {
	if m.signinVenueFn != nil {
		return m.signinVenueFn(ctx, req)
	}
	return &model.VenueAuthResponse{Token: "t", Venue: &model.Venue{ID: testVenueID}}, nil
}

func (m *mockAuthService) AddVenue(ctx context.Context, actor model.Identity, req *model.VenueSignupRequest) (*model.Venue, error) {
	if m.addVenueFn != nil {
		return m.addVenueFn(ctx, actor, req)
	}
	return &model.Venue{ID: uuid.New(), Name: req.Name}, nil
}

func (m *mockAuthService) ListVenues(ctx context.Context, actor model.Identity) ([]*model.Venue, error) {
	if m.listVenuesFn != nil {
		return m.listVenuesFn(ctx, actor)
	}
	return []*model.Venue{}, nil
}

func (m *mockAuthService) Member(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	if m.memberFn != nil {
		return m.memberFn(ctx, id)
	}
	return &model.Member{ID: id}, nil
}

func (m *mockAuthService) Venue(ctx context.Context, id uuid.UUID) (*model.Venue, error) {
	if m.venueFn != nil {
		return m.venueFn(ctx, id)
	}
	return &model.Venue{ID: id}, nil
}

// mockDealService is a mock implementation of DealServiceInterface.
type mockDealService struct {
	createFn       func(ctx context.Context, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error)
	createForFn    func(ctx context.Context, actor model.Identity, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error)
	viewFn         func(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error)
	listForVenueFn func(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error)
	listForMemFn   func(ctx context.Context, memberID uuid.UUID) ([]*model.Deal, error)
	updateFn       func(ctx context.Context, venueID, id uuid.UUID, req *model.UpdateDealRequest) (*model.Deal, error)
	activateFn     func(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error)
	sendFn         func(ctx context.Context, venueID, id uuid.UUID) (int, error)
	claimsFn       func(ctx context.Context, venueID, id uuid.UUID) ([]uuid.UUID, error)
}

func (m *mockDealService) Create(ctx context.Context, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error) {
	if m.createFn != nil {
		return m.createFn(ctx, venueID, req)
	}
	return &model.Deal{ID: testDealID, VenueID: venueID, Title: req.Title}, nil
}

func (m *mockDealService) CreateForVenue(ctx context.Context, actor model.Identity, venueID uuid.UUID, req *model.CreateDealRequest) (*model.Deal, error) {
	if m.createForFn != nil {
		return m.createForFn(ctx, actor, venueID, req)
	}
	return &model.Deal{ID: testDealID, VenueID: venueID, Title: req.Title}, nil
}

func (m *mockDealService) View(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error) {
	if m.viewFn != nil {
		return m.viewFn(ctx, actor, id)
	}
	return &model.Deal{ID: id}, nil
}

func (m *mockDealService) ListForMember(ctx context.Context, memberID uuid.UUID) ([]*model.Deal, error) {
	if m.listForMemFn != nil {
		return m.listForMemFn(ctx, memberID)
	}
	return []*model.Deal{}, nil
}

func (m *mockDealService) ListForVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Deal, error) {
	if m.listForVenueFn != nil {
		return m.listForVenueFn(ctx, venueID)
	}
	return []*model.Deal{}, nil
}

func (m *mockDealService) Update(ctx context.Context, venueID, id uuid.UUID, req *model.UpdateDealRequest) (*model.Deal, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, venueID, id, req)
	}
	return &model.Deal{ID: id, VenueID: venueID}, nil
}

func (m *mockDealService) Activate(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Deal, error) {
	if m.activateFn != nil {
		return m.activateFn(ctx, actor, id)
	}
	return &model.Deal{ID: id, IsActive: true}, nil
}

func (m *mockDealService) Send(ctx context.Context, venueID, id uuid.UUID) (int, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, venueID, id)
	}
	return 0, nil
}

func (m *mockDealService) Claims(ctx context.Context, venueID, id uuid.UUID) ([]uuid.UUID, error) {
	if m.claimsFn != nil {
		return m.claimsFn(ctx, venueID, id)
	}
	return []uuid.UUID{}, nil
}

// mockIssuanceService is a mock implementation of IssuanceServiceInterface.
type mockIssuanceService struct {
	issueFn func(ctx context.Context, dealID, venueID uuid.UUID) ([]*model.Coupon, error)
}

func (m *mockIssuanceService) Issue(ctx context.Context, dealID, venueID uuid.UUID) ([]*model.Coupon, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, dealID, venueID)
	}
	return []*model.Coupon{}, nil
}

// mockCouponService is a mock implementation of CouponServiceInterface.
type mockCouponService struct {
	claimFn         func(ctx context.Context, dealID, memberID uuid.UUID) (*model.Coupon, error)
	redeemFn        func(ctx context.Context, code string, memberID uuid.UUID) (*model.Coupon, error)
	getByCodeFn     func(ctx context.Context, actor model.Identity, code string) (*model.Coupon, error)
	listForDealFn   func(ctx context.Context, venueID, dealID uuid.UUID) ([]*model.Coupon, error)
	listForMemberFn func(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error)
	listForVenueFn  func(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error)
	qrImageFn       func(ctx context.Context, actor model.Identity, code string) (*model.QRImage, error)
	analyticsFn     func(ctx context.Context, actor model.Identity) ([]model.TitleAnalytics, error)
}

func (m *mockCouponService) Claim(ctx context.Context, dealID, memberID uuid.UUID) (*model.Coupon, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, dealID, memberID)
	}
	return &model.Coupon{DealID: dealID, Holder: model.AssignedTo(memberID)}, nil
}

func (m *mockCouponService) Redeem(ctx context.Context, code string, memberID uuid.UUID) (*model.Coupon, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, code, memberID)
	}
	return &model.Coupon{Code: code, Holder: model.AssignedTo(memberID), Redeemed: true}, nil
}

func (m *mockCouponService) GetByCode(ctx context.Context, actor model.Identity, code string) (*model.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, actor, code)
	}
	return &model.Coupon{Code: code}, nil
}

func (m *mockCouponService) ListForDeal(ctx context.Context, venueID, dealID uuid.UUID) ([]*model.Coupon, error) {
	if m.listForDealFn != nil {
		return m.listForDealFn(ctx, venueID, dealID)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponService) ListForMember(ctx context.Context, memberID uuid.UUID) ([]*model.Coupon, error) {
	if m.listForMemberFn != nil {
		return m.listForMemberFn(ctx, memberID)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponService) ListForVenue(ctx context.Context, venueID uuid.UUID) ([]*model.Coupon, error) {
	if m.listForVenueFn != nil {
		return m.listForVenueFn(ctx, venueID)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponService) QRImage(ctx context.Context, actor model.Identity, code string) (*model.QRImage, error) {
	if m.qrImageFn != nil {
		return m.qrImageFn(ctx, actor, code)
	}
	return &model.QRImage{Filename: code + ".png", ContentType: "image/png", Data: []byte("png")}, nil
}

func (m *mockCouponService) Analytics(ctx context.Context, actor model.Identity) ([]model.TitleAnalytics, error) {
	if m.analyticsFn != nil {
		return m.analyticsFn(ctx, actor)
	}
	return []model.TitleAnalytics{}, nil
}

// testServices holds the mocks behind a test app. Nil mocks get defaults.
type testServices struct {
	auth     *mockAuthService
	deals    *mockDealService
	issuance *mockIssuanceService
	coupons  *mockCouponService
}

func setupTestApp(svc testServices) *fiber.App {
	if svc.auth == nil {
		svc.auth = &mockAuthService{}
	}
	if svc.deals == nil {
		svc.deals = &mockDealService{}
	}
	if svc.issuance == nil {
		svc.issuance = &mockIssuanceService{}
	}
	if svc.coupons == nil {
		svc.coupons = &mockCouponService{}
	}

	v := appvalidator.New()
	app := fiber.New()
	routes := &Routes{
		Health: NewHealthHandler(&mockPinger{}),
		Auth:   NewAuthHandler(svc.auth, v),
		Deals:  NewDealHandler(svc.deals, svc.issuance, v),
		Coupon: NewCouponHandler(svc.coupons, v),
		Tokens: testTokens(),
	}
	routes.Register(app)
	return app
}

// doRequest sends a request and decodes a JSON object response, if any.
func doRequest(t *testing.T, app *fiber.App, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &result))
	}
	return resp, result
}
