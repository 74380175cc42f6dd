package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/smartq/internal/domain/registration"
	"github.com/geocoder89/smartq/internal/domain/user"
)

func TestUsersRepo_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	saved, err := r.Save(ctx, user.User{ID: "u1", Email: "Alice@Example.com", Role: user.RoleStudent})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if saved.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}

	got, err := r.FindByEmail(ctx, "alice@example.COM")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("got id %q", got.ID)
	}

	ok, _ := r.ExistsByID(ctx, "u1")
	if !ok {
		t.Fatalf("expected u1 to exist")
	}
}

func TestUsersRepo_EmailUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	_, _ = r.Save(ctx, user.User{ID: "u1", Email: "a@b.com"})
	_, err := r.Save(ctx, user.User{ID: "u2", Email: "A@B.COM"})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// updating the same id keeps its email
	if _, err := r.Save(ctx, user.User{ID: "u1", Email: "a@b.com", EmailVerified: true}); err != nil {
		t.Fatalf("update of same id should succeed: %v", err)
	}
}

func TestUsersRepo_DeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	if _, err := r.FindByID(ctx, "nope"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _ = r.Save(ctx, user.User{ID: "u1", Email: "a@b.com"})
	if err := r.DeleteByID(ctx, "u1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := r.DeleteByID(ctx, "u1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestPendingRepo_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	r := NewPendingRegistrationsRepo()
	now := time.Now()

	_ = r.Upsert(ctx, registration.NewPending("a@b.com", "A", "h1", "111111", now))
	_ = r.Upsert(ctx, registration.NewPending("a@b.com", "A", "h2", "222222", now))

	p, err := r.Find(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if p.Code != "222222" {
		t.Fatalf("expected overwrite, got code %q", p.Code)
	}

	_ = r.Delete(ctx, "a@b.com")
	if _, err := r.Find(ctx, "a@b.com"); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPendingRepo_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	r := NewPendingRegistrationsRepo()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	_ = r.Upsert(ctx, registration.NewPending("old@b.com", "Old", "h", "111111", now.Add(-48*time.Hour)))
	_ = r.Upsert(ctx, registration.NewPending("new@b.com", "New", "h", "222222", now))

	n, err := r.DeleteExpired(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := r.Find(ctx, "old@b.com"); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("stale record should be gone, got %v", err)
	}
	if _, err := r.Find(ctx, "new@b.com"); err != nil {
		t.Fatalf("fresh record should survive, got %v", err)
	}
}

func TestPendingRepo_DeleteExpiredKeepsVerified(t *testing.T) {
	ctx := context.Background()
	r := NewPendingRegistrationsRepo()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	p := registration.NewPending("done@b.com", "Done", "h", "111111", now.Add(-48*time.Hour))
	p.Verified = true
	_ = r.Upsert(ctx, p)

	n, err := r.DeleteExpired(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if n != 0 {
		t.Fatalf("verified record must not be purged, purged %d", n)
	}
	if _, err := r.Find(ctx, "done@b.com"); err != nil {
		t.Fatalf("verified record should still be completable, got %v", err)
	}
}
