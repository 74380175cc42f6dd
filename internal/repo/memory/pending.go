package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/smartq/internal/domain/registration"
)

type PendingRegistrationsRepo struct {
	mu    sync.RWMutex
	items map[string]registration.Pending
}

func NewPendingRegistrationsRepo() *PendingRegistrationsRepo {
	return &PendingRegistrationsRepo{
		items: make(map[string]registration.Pending),
	}
}

func (r *PendingRegistrationsRepo) Upsert(_ context.Context, p registration.Pending) error {
	r.mu.Lock()
	r.items[p.Email] = p
	r.mu.Unlock()

	return nil
}

func (r *PendingRegistrationsRepo) Find(_ context.Context, email string) (registration.Pending, error) {
	r.mu.RLock()
	p, ok := r.items[email]
	r.mu.RUnlock()

	if !ok {
		return registration.Pending{}, registration.ErrNotFound
	}
	return p, nil
}

func (r *PendingRegistrationsRepo) Delete(_ context.Context, email string) error {
	r.mu.Lock()
	delete(r.items, email)
	r.mu.Unlock()

	return nil
}

// DeleteExpired removes unverified records whose code expired before the
// cutoff. Verified records wait for Complete.
func (r *PendingRegistrationsRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for email, p := range r.items {
		if !p.Verified && p.ExpiresAt.Before(before) {
			delete(r.items, email)
			n++
		}
	}
	return n, nil
}
