package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hivex-io/hivex/internal/model"
)

// Routes bundles the handlers mounted by Register.
type Routes struct {
	Health *HealthHandler
	Auth   *AuthHandler
	Deals  *DealHandler
	Coupon *CouponHandler
	Tokens TokenVerifier
}

// Register mounts every route on app.
func (r *Routes) Register(app *fiber.App) {
	app.Get("/health", r.Health.Check)

	api := app.Group("/api")

	api.Post("/members/signup", r.Auth.SignupMember)
	api.Post("/brokers/signup", r.Auth.SignupBroker)
	api.Post("/members/signin", r.Auth.SigninMember)
	api.Post("/venues/signup", r.Auth.SignupVenue)
	api.Post("/venues/signin", r.Auth.SigninVenue)

	authed := api.Group("", Authenticate(r.Tokens))
	member := RequireRole(model.RoleMember, model.RoleBroker)
	broker := RequireRole(model.RoleBroker)
	venue := RequireRole(model.RoleVenue)
	venueOrBroker := RequireRole(model.RoleVenue, model.RoleBroker)

	authed.Get("/members/profile", member, r.Auth.MemberProfile)
	authed.Get("/member/coupons", member, r.Coupon.MemberCoupons)
	authed.Get("/member/deals", member, r.Deals.MemberDeals)

	authed.Get("/venues/profile", venue, r.Auth.VenueProfile)
	authed.Get("/venues", broker, r.Auth.ListVenues)
	authed.Post("/venues", broker, r.Auth.AddVenue)
	authed.Post("/venues/:id/deals", broker, r.Deals.CreateVenueDeal)

	authed.Post("/deals", venue, r.Deals.CreateDeal)
	authed.Get("/deals", venue, r.Deals.ListDeals)
	authed.Get("/deals/:id", r.Deals.GetDeal)
	authed.Patch("/deals/:id", venue, r.Deals.UpdateDeal)
	authed.Post("/deals/:id/activate", venueOrBroker, r.Deals.ActivateDeal)
	authed.Post("/deals/:id/issue", venue, r.Deals.IssueDeal)
	authed.Post("/deals/:id/send", venue, r.Deals.SendDeal)
	authed.Get("/deals/:id/claims", venue, r.Deals.DealClaims)
	authed.Get("/deals/:id/coupons", venue, r.Coupon.DealCoupons)
	authed.Post("/deals/:id/claim", member, r.Coupon.ClaimDeal)

	authed.Get("/coupons", venue, r.Coupon.VenueCoupons)
	authed.Post("/coupons/redeem", member, r.Coupon.RedeemCoupon)
	authed.Get("/coupons/:code", r.Coupon.GetCoupon)
	authed.Get("/coupons/:code/qr", r.Coupon.CouponQR)

	authed.Get("/analytics", broker, r.Coupon.Analytics)
}
