package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govpass/govpass/internal/domain/repository"
)

type citizenRepo struct {
	pool *pgxpool.Pool
}

func (r *citizenRepo) GetByID(ctx context.Context, citizenID string) (*repository.CitizenProfile, error) {
	const q = `
		SELECT citizen_id, nip, given_name, family_name, birthdate, gender,
		       email, email_verified, phone, phone_verified, updated_at
		FROM citizen_profiles
		WHERE citizen_id = $1`

	var p repository.CitizenProfile
	err := r.pool.QueryRow(ctx, q, citizenID).Scan(
		&p.CitizenID, &p.NIP, &p.GivenName, &p.FamilyName, &p.Birthdate, &p.Gender,
		&p.Email, &p.EmailVerified, &p.Phone, &p.PhoneVerified, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *citizenRepo) Upsert(ctx context.Context, p repository.CitizenProfile) error {
	const q = `
		INSERT INTO citizen_profiles
			(citizen_id, nip, given_name, family_name, birthdate, gender,
			 email, email_verified, phone, phone_verified, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (citizen_id) DO UPDATE SET
			nip = EXCLUDED.nip,
			given_name = EXCLUDED.given_name,
			family_name = EXCLUDED.family_name,
			birthdate = EXCLUDED.birthdate,
			gender = EXCLUDED.gender,
			email = EXCLUDED.email,
			email_verified = EXCLUDED.email_verified,
			phone = EXCLUDED.phone,
			phone_verified = EXCLUDED.phone_verified,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, q,
		p.CitizenID, p.NIP, p.GivenName, p.FamilyName, p.Birthdate, p.Gender,
		p.Email, p.EmailVerified, p.Phone, p.PhoneVerified,
	)
	return err
}
