package repository

import (
	"context"
	"time"
)

// CitizenProfile is the read-only claims source for ID tokens, keyed by
// citizen_id. Owned by the external profile store; this core only reads it.
type CitizenProfile struct {
	CitizenID     string
	NIP           string // national identifier
	GivenName     string
	FamilyName    string
	Birthdate     string // ISO 8601 date
	Gender        string
	Email         string
	EmailVerified bool
	Phone         string
	PhoneVerified bool
	UpdatedAt     time.Time
}

// CitizenRepository reads citizen profiles.
type CitizenRepository interface {
	// GetByID returns the profile for citizen_id, ErrNotFound if absent.
	GetByID(ctx context.Context, citizenID string) (*CitizenProfile, error)

	// Upsert writes a profile. Used by seeding only; the profile store is
	// authoritative in production.
	Upsert(ctx context.Context, profile CitizenProfile) error
}
