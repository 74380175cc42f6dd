package actorctx

import (
	"context"
	"testing"

	"github.com/geocoder89/smartq/internal/domain/user"
)

func TestUserRoundTrip(t *testing.T) {
	if _, ok := UserFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no user")
	}

	ctx := WithUser(context.Background(), user.User{ID: "u1", Role: user.RoleAdmin})
	id, ok := UserIDFrom(ctx)
	if !ok || id != "u1" {
		t.Fatalf("got %q %v", id, ok)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	if _, ok := RequestIDFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no request id")
	}

	id, ok := RequestIDFrom(WithRequestID(context.Background(), "req-1"))
	if !ok || id != "req-1" {
		t.Fatalf("got %q %v", id, ok)
	}
}
