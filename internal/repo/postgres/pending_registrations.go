package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/smartq/internal/domain/registration"
	"github.com/geocoder89/smartq/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PendingRegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPendingRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PendingRegistrationsRepo {
	return &PendingRegistrationsRepo{pool: pool, prom: prom}
}

func (r *PendingRegistrationsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Upsert is last-write-wins per email.
func (r *PendingRegistrationsRepo) Upsert(ctx context.Context, p registration.Pending) error {
	return r.observe("pending.upsert", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO pending_registrations (email, name, password_hash, code, expires_at, verified, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (email) DO UPDATE SET
				name = EXCLUDED.name,
				password_hash = EXCLUDED.password_hash,
				code = EXCLUDED.code,
				expires_at = EXCLUDED.expires_at,
				verified = EXCLUDED.verified,
				created_at = EXCLUDED.created_at
		`, p.Email, p.Name, p.PasswordHash, p.Code, p.ExpiresAt, p.Verified, p.CreatedAt)
		return err
	})
}

func (r *PendingRegistrationsRepo) Find(ctx context.Context, email string) (registration.Pending, error) {
	var p registration.Pending

	err := r.observe("pending.find", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT email, name, password_hash, code, expires_at, verified, created_at
			FROM pending_registrations
			WHERE email = $1
		`, email).Scan(&p.Email, &p.Name, &p.PasswordHash, &p.Code, &p.ExpiresAt, &p.Verified, &p.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Pending{}, registration.ErrNotFound
		}
		return registration.Pending{}, err
	}
	return p, nil
}

// Delete is idempotent.
func (r *PendingRegistrationsRepo) Delete(ctx context.Context, email string) error {
	return r.observe("pending.delete", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM pending_registrations WHERE email = $1`, email)
		return err
	})
}

// DeleteExpired skips verified rows; expiry only gates verification.
func (r *PendingRegistrationsRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.observe("pending.delete_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM pending_registrations WHERE verified = false AND expires_at < $1`, before)
		n = tag.RowsAffected()
		return err
	})
	return n, err
}
