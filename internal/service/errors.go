package service

import "errors"

var (
	// ErrValidation is returned when input is malformed; nothing in the pool is touched.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound is returned when a deal, coupon, member or venue does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrCapExceeded is returned when a member already holds the maximum number of coupons.
	ErrCapExceeded = errors.New("coupon cap exceeded for member")

	// ErrPoolExhausted is returned when a deal has no unclaimed coupon left.
	ErrPoolExhausted = errors.New("no coupons left for deal")

	// ErrAlreadyClaimed is returned when a member already holds a coupon of the deal.
	ErrAlreadyClaimed = errors.New("coupon already claimed by member for this deal")

	// ErrAlreadyRedeemed is returned when a coupon has been redeemed before.
	ErrAlreadyRedeemed = errors.New("coupon already redeemed")

	// ErrExpired is returned when a coupon or deal is past its expiry.
	ErrExpired = errors.New("coupon expired")

	// ErrNotOwned is returned when the coupon is unclaimed or claimed by someone else.
	ErrNotOwned = errors.New("coupon not owned by member")

	// ErrConcurrencyConflict is returned when an atomic update lost a race.
	// Claims may be retried; redemptions must be re-read first.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrDealAlreadyIssued is returned when coupons were already minted for the deal.
	ErrDealAlreadyIssued = errors.New("deal already issued")

	// ErrDealFrozen is returned when editing a deal whose coupons were minted.
	ErrDealFrozen = errors.New("deal is frozen after issuance")

	// ErrDealInactive is returned when claiming from a deal that is not active or not issued.
	ErrDealInactive = errors.New("deal inactive")

	// ErrDuplicateTitle is returned when a venue already has a deal with the title.
	ErrDuplicateTitle = errors.New("deal title must be unique")

	// ErrEmailInUse is returned when signing up with a registered e-mail.
	ErrEmailInUse = errors.New("email in use")

	// ErrInvalidCredentials is returned when sign in fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Stable error codes returned to clients.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeCapExceeded         = "CAP_EXCEEDED"
	CodePoolExhausted       = "POOL_EXHAUSTED"
	CodeAlreadyClaimed      = "ALREADY_CLAIMED"
	CodeAlreadyRedeemed     = "ALREADY_REDEEMED"
	CodeExpired             = "EXPIRED"
	CodeNotOwned            = "NOT_OWNED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeDealAlreadyIssued   = "DEAL_ALREADY_ISSUED"
	CodeDealFrozen          = "DEAL_FROZEN"
	CodeDealInactive        = "DEAL_INACTIVE"
	CodeDuplicateTitle      = "DUPLICATE_TITLE"
	CodeEmailInUse          = "EMAIL_IN_USE"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInternal            = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrValidation, CodeValidation},
	{ErrNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrCapExceeded, CodeCapExceeded},
	{ErrPoolExhausted, CodePoolExhausted},
	{ErrAlreadyClaimed, CodeAlreadyClaimed},
	{ErrAlreadyRedeemed, CodeAlreadyRedeemed},
	{ErrExpired, CodeExpired},
	{ErrNotOwned, CodeNotOwned},
	{ErrConcurrencyConflict, CodeConcurrencyConflict},
	{ErrDealAlreadyIssued, CodeDealAlreadyIssued},
	{ErrDealFrozen, CodeDealFrozen},
	{ErrDealInactive, CodeDealInactive},
	{ErrDuplicateTitle, CodeDuplicateTitle},
	{ErrEmailInUse, CodeEmailInUse},
	{ErrInvalidCredentials, CodeInvalidCredentials},
}

// ErrorCode returns the stable client code for err, or CodeInternal.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
