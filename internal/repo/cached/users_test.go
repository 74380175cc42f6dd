package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/repo/memory"
)

type countingStore struct {
	*memory.UsersRepo
	finds int
}

func (c *countingStore) FindByID(ctx context.Context, id string) (user.User, error) {
	c.finds++
	return c.UsersRepo.FindByID(ctx, id)
}

func TestUsers_CachesFindByIDAndInvalidatesOnWrite(t *testing.T) {
	inner := &countingStore{UsersRepo: memory.NewUsersRepo()}
	users := NewUsers(inner, time.Minute)
	ctx := context.Background()

	if _, err := users.Save(ctx, user.User{ID: "u1", Name: "Alice", Email: "a@b.com", Role: user.RoleStudent}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := users.FindByID(ctx, "u1"); err != nil {
			t.Fatalf("FindByID error: %v", err)
		}
	}
	if inner.finds != 1 {
		t.Fatalf("expected one backing lookup, got %d", inner.finds)
	}

	if _, err := users.Save(ctx, user.User{ID: "u1", Name: "Alicia", Email: "a@b.com", Role: user.RoleStudent}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, _ := users.FindByID(ctx, "u1")
	if got.Name != "Alicia" {
		t.Fatalf("save should invalidate, got %q", got.Name)
	}

	if err := users.DeleteByID(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if _, err := users.FindByID(ctx, "u1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// racingStore runs a read through the cache while a write is in flight.
type racingStore struct {
	*memory.UsersRepo
	duringWrite func()
}

func (r *racingStore) Save(ctx context.Context, u user.User) (user.User, error) {
	if r.duringWrite != nil {
		r.duringWrite()
	}
	return r.UsersRepo.Save(ctx, u)
}

func (r *racingStore) DeleteByID(ctx context.Context, id string) error {
	if r.duringWrite != nil {
		r.duringWrite()
	}
	return r.UsersRepo.DeleteByID(ctx, id)
}

func TestUsers_ReadDuringWriteDoesNotLeaveStaleEntry(t *testing.T) {
	inner := &racingStore{UsersRepo: memory.NewUsersRepo()}
	users := NewUsers(inner, time.Minute)
	ctx := context.Background()

	if _, err := users.Save(ctx, user.User{ID: "u1", Name: "Alice", Email: "a@b.com", Role: user.RoleStudent}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	inner.duringWrite = func() { _, _ = users.FindByID(ctx, "u1") }

	if _, err := users.Save(ctx, user.User{ID: "u1", Name: "Alice", Email: "a@b.com", Role: user.RoleAdmin}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := users.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.Role != user.RoleAdmin {
		t.Fatalf("cache kept the pre-write row, role %q", got.Role)
	}

	if err := users.DeleteByID(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	inner.duringWrite = nil
	if _, err := users.FindByID(ctx, "u1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("deleted user still served from cache: %v", err)
	}
}
