package db

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/geocoder89/smartq/internal/config"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/repo/memory"
)

func TestEnsureAdminUser_SeedsOnce(t *testing.T) {
	users := memory.NewUsersRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{AdminEmail: "Root@SmartQ.dev", AdminPassword: "Adm1n!pass", AdminName: "Root"}
	ctx := context.Background()

	if err := EnsureAdminUser(ctx, users, cfg, log); err != nil {
		t.Fatalf("EnsureAdminUser error: %v", err)
	}
	if err := EnsureAdminUser(ctx, users, cfg, log); err != nil {
		t.Fatalf("second EnsureAdminUser error: %v", err)
	}

	all, _ := users.List(ctx)
	if len(all) != 1 {
		t.Fatalf("expected exactly one admin, got %d", len(all))
	}
	if all[0].Role != user.RoleAdmin || !all[0].EmailVerified || all[0].Email != "root@smartq.dev" {
		t.Fatalf("unexpected admin: %+v", all[0])
	}
}

func TestEnsureAdminUser_NoConfigIsNoop(t *testing.T) {
	users := memory.NewUsersRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := EnsureAdminUser(context.Background(), users, config.Config{}, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := users.List(context.Background())
	if len(all) != 0 {
		t.Fatalf("nothing should be seeded")
	}
}
