package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geocoder89/smartq/internal/domain/registration"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "smartq:pending:"

// defaultGrace keeps expired records around long enough for verify to report
// "expired" instead of "not found". Redis TTL is garbage collection only;
// expiry itself is decided by the caller at verify time.
const defaultGrace = 24 * time.Hour

type PendingRegistrationsRepo struct {
	rdb   redis.Cmdable
	grace time.Duration
	now   func() time.Time
}

func NewPendingRegistrationsRepo(rdb redis.Cmdable) *PendingRegistrationsRepo {
	return &PendingRegistrationsRepo{
		rdb:   rdb,
		grace: defaultGrace,
		now:   time.Now,
	}
}

func key(email string) string {
	return keyPrefix + email
}

func (r *PendingRegistrationsRepo) Upsert(ctx context.Context, p registration.Pending) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, key(p.Email), raw, r.ttl(p)).Err()
}

// ttl is zero (no expiry) once the record is verified: expiry only gates
// verification, and Complete deletes the key.
func (r *PendingRegistrationsRepo) ttl(p registration.Pending) time.Duration {
	if p.Verified {
		return 0
	}
	ttl := p.ExpiresAt.Sub(r.now()) + r.grace
	if ttl < r.grace {
		ttl = r.grace
	}
	return ttl
}

func (r *PendingRegistrationsRepo) Find(ctx context.Context, email string) (registration.Pending, error) {
	raw, err := r.rdb.Get(ctx, key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return registration.Pending{}, registration.ErrNotFound
		}
		return registration.Pending{}, err
	}

	var p registration.Pending
	if err := json.Unmarshal(raw, &p); err != nil {
		return registration.Pending{}, err
	}
	return p, nil
}

func (r *PendingRegistrationsRepo) Delete(ctx context.Context, email string) error {
	return r.rdb.Del(ctx, key(email)).Err()
}
