// Package accounts implements registration and login: the self-hosted
// code-by-email flow, the external identity provider flows, and admin user
// management.
package accounts

import (
	"context"

	"github.com/geocoder89/smartq/internal/domain/registration"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/identity"
)

type UserStore interface {
	Save(ctx context.Context, u user.User) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type PendingStore interface {
	Upsert(ctx context.Context, p registration.Pending) error
	Find(ctx context.Context, email string) (registration.Pending, error)
	Delete(ctx context.Context, email string) error
}

type TokenIssuer interface {
	Issue(subject, email string, ttlSeconds int64) (string, error)
}

// Provider is the subset of the identity client the flows call.
type Provider interface {
	CreateUser(ctx context.Context, in identity.CreateUserInput) (identity.RemoteUser, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, token string) (identity.RemoteUser, error)
	PasswordLogin(ctx context.Context, email, password string) (identity.RemoteUser, error)
}

// AuthResult is returned by every successful login-like operation.
type AuthResult struct {
	Token     string    `json:"token"`
	User      user.View `json:"user"`
	ExpiresIn int64     `json:"expiresIn"`
}

type sessions struct {
	tokens TokenIssuer
	ttl    int64
}

func (s sessions) open(op string, u user.User) (AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, s.ttl)
	if err != nil {
		return AuthResult{}, internal(op, err)
	}
	return AuthResult{Token: tok, User: u.View(), ExpiresIn: s.ttl}, nil
}
