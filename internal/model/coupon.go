package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultCouponPoints is the loyalty points value attached to a freshly minted coupon.
const DefaultCouponPoints = 10

// Holder tells whether a coupon is still in the pool or claimed by a member.
// The zero value is Unassigned.
type Holder struct {
	memberID uuid.UUID
	assigned bool
}

// Unassigned returns the holder of an unclaimed coupon.
func Unassigned() Holder { return Holder{} }

// AssignedTo returns the holder of a coupon claimed by memberID.
func AssignedTo(memberID uuid.UUID) Holder {
	return Holder{memberID: memberID, assigned: true}
}

// HolderFromNullable builds a Holder from a nullable member_id column.
func HolderFromNullable(memberID *uuid.UUID) Holder {
	if memberID == nil {
		return Unassigned()
	}
	return AssignedTo(*memberID)
}

// MemberID returns the claiming member, if any.
func (h Holder) MemberID() (uuid.UUID, bool) {
	return h.memberID, h.assigned
}

// IsAssigned reports whether the coupon has been claimed.
func (h Holder) IsAssigned() bool { return h.assigned }

// IsAssignedTo reports whether the coupon is claimed by memberID.
func (h Holder) IsAssignedTo(memberID uuid.UUID) bool {
	return h.assigned && h.memberID == memberID
}

// MarshalJSON renders an unassigned holder as null and an assigned one as the member id.
func (h Holder) MarshalJSON() ([]byte, error) {
	if !h.assigned {
		return []byte("null"), nil
	}
	return json.Marshal(h.memberID.String())
}

// UnmarshalJSON accepts null or a member id string.
func (h *Holder) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*h = Unassigned()
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return err
	}
	*h = AssignedTo(id)
	return nil
}

// Coupon is one redeemable instance minted from a Deal.
// Title, Value and Expiry are a snapshot of the deal taken at mint time.
type Coupon struct {
	ID         uuid.UUID  `json:"id"`
	Seq        int64      `json:"-"` // insertion order inside the pool
	Code       string     `json:"code"`
	Title      string     `json:"title"`
	Value      string     `json:"value"`
	Expiry     time.Time  `json:"expiry"`
	VenueID    uuid.UUID  `json:"venue_id"`
	DealID     uuid.UUID  `json:"deal_id"`
	Holder     Holder     `json:"member_id"`
	ClaimedAt  *time.Time `json:"claimed_at"`
	Redeemed   bool       `json:"redeemed"`
	RedeemedAt *time.Time `json:"redeemed_at"`
	Points     int        `json:"points"`
	QRImageID  *uuid.UUID `json:"qr_image_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ExpiredAt reports whether the coupon is past its expiry at now.
func (c *Coupon) ExpiredAt(now time.Time) bool {
	return now.After(c.Expiry)
}

// RedeemCouponRequest is the DTO for redeeming a coupon.
type RedeemCouponRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

// RedeemCouponResponse is returned after a successful redemption.
type RedeemCouponResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Coupon  *Coupon `json:"coupon"`
}

// QRImage is a stored QR artifact for a coupon code.
type QRImage struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// TitleAnalytics summarizes coupon usage for one deal title.
type TitleAnalytics struct {
	Title           string  `json:"title"`
	Count           int     `json:"count"`
	Redeemed        int     `json:"redeemed"`
	AverageSpanDays float64 `json:"average_span_days"`
	RedemptionRate  float64 `json:"redemption_rate"`
}
