package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/smartq/internal/domain/user"
)

// UsersRepo mirrors the Postgres users table, including the case-insensitive
// email uniqueness constraint.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // id -> user
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Save(_ context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.AssignedResourceIDs = append([]string{}, u.AssignedResourceIDs...)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.items {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, user.ErrEmailTaken
		}
	}

	if prev, ok := r.items[u.ID]; ok {
		u.CreatedAt = prev.CreatedAt
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	_, ok := r.items[id]
	r.mu.RUnlock()

	return ok, nil
}

func (r *UsersRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
