package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

const userColumns = `id, name, email, password_hash, email_verified, role, points,
	COALESCE(assigned_resource_ids, '[]'::jsonb), created_at, updated_at`

// Save inserts the user or updates the row with the same id. The id itself
// is never rewritten.
func (r *UsersRepo) Save(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.AssignedResourceIDs == nil {
		u.AssignedResourceIDs = []string{}
	}

	err := r.observe("users.save", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, email_verified, role, points, assigned_resource_ids, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				password_hash = EXCLUDED.password_hash,
				email_verified = EXCLUDED.email_verified,
				role = EXCLUDED.role,
				points = EXCLUDED.points,
				assigned_resource_ids = EXCLUDED.assigned_resource_ids,
				updated_at = EXCLUDED.updated_at
		`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.EmailVerified, string(u.Role), u.Points,
			u.AssignedResourceIDs, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail matches case-insensitively.
func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_email", `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UsersRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.observe("users.exists_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	})
	return exists, err
}

func (r *UsersRepo) DeleteByID(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := r.observe("users.delete_by_id", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	return out, err
}

func (r *UsersRepo) findOne(ctx context.Context, op, query string, arg string) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, arg))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u    user.User
		role string
	)

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.EmailVerified,
		&role,
		&u.Points,
		&u.AssignedResourceIDs,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.ParseRole(role)
	return u, nil
}
