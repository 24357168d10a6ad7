package model

import (
	"time"

	"github.com/google/uuid"
)

// Member is a marketplace user. Brokers are members with IsBroker set.
type Member struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsBroker     bool      `json:"is_broker"`
	CreatedAt    time.Time `json:"created_at"`
}

// Venue owns deals.
type Venue struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// MemberSignupRequest is the DTO for member and broker sign up.
type MemberSignupRequest struct {
	FirstName string `json:"first_name" validate:"max=255"`
	LastName  string `json:"last_name" validate:"max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,notblank,min=3,max=20"`
}

// VenueSignupRequest is the DTO for venue sign up and broker-added venues.
type VenueSignupRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Address  string `json:"address" validate:"max=500"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,notblank,min=3,max=20"`
}

// SigninRequest is the DTO for signing in.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,notblank"`
}

// MemberAuthResponse is returned after member sign up or sign in.
type MemberAuthResponse struct {
	Token  string  `json:"token"`
	Member *Member `json:"member"`
}

// VenueAuthResponse is returned after venue sign up or sign in.
type VenueAuthResponse struct {
	Token string `json:"token"`
	Venue *Venue `json:"venue"`
}
