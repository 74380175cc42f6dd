// Package cached puts a short-lived read-through cache in front of the user
// store for the per-request identity lookup.
package cached

import (
	"context"
	"time"

	"github.com/geocoder89/smartq/internal/cache"
	"github.com/geocoder89/smartq/internal/domain/user"
)

type UserStore interface {
	Save(ctx context.Context, u user.User) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

// Users caches FindByID only. Writes through this wrapper invalidate; writes
// that bypass it are visible after the TTL.
type Users struct {
	UserStore
	byID *cache.Cache[user.User]
}

func NewUsers(inner UserStore, ttl time.Duration) *Users {
	return &Users{UserStore: inner, byID: cache.New[user.User](ttl)}
}

func (u *Users) FindByID(ctx context.Context, id string) (user.User, error) {
	if hit, ok := u.byID.Get(id); ok {
		return hit, nil
	}

	found, err := u.UserStore.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.byID.Set(id, found)
	return found, nil
}

// Save evicts again after the write: a read racing the write may have
// re-cached the old row.
func (u *Users) Save(ctx context.Context, in user.User) (user.User, error) {
	u.byID.Delete(in.ID)
	defer u.byID.Delete(in.ID)
	return u.UserStore.Save(ctx, in)
}

func (u *Users) DeleteByID(ctx context.Context, id string) error {
	u.byID.Delete(id)
	defer u.byID.Delete(id)
	return u.UserStore.DeleteByID(ctx, id)
}
