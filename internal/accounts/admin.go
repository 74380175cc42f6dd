package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/smartq/internal/apperr"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/security"
	"github.com/google/uuid"
)

type CreateUserInput struct {
	Name                string
	Email               string
	Password            string
	Role                string
	AssignedResourceIDs []string
}

// UpdateUserInput applies only the non-nil fields.
type UpdateUserInput struct {
	Name                *string
	Email               *string
	Password            *string
	Role                *string
	AssignedResourceIDs *[]string
}

// Admin manages users with locally held credentials.
type Admin struct {
	users  UserStore
	hasher security.Hasher
	log    *slog.Logger
	newID  func() string
}

func NewAdmin(users UserStore, hasher security.Hasher, log *slog.Logger) *Admin {
	return &Admin{users: users, hasher: hasher, log: log, newID: uuid.NewString}
}

func (a *Admin) List(ctx context.Context) ([]user.View, error) {
	users, err := a.users.List(ctx)
	if err != nil {
		return nil, internal("admin.list", err)
	}

	out := make([]user.View, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out, nil
}

func (a *Admin) Get(ctx context.Context, id string) (user.View, error) {
	u, err := a.find(ctx, "admin.get", id)
	if err != nil {
		return user.View{}, err
	}
	return u.View(), nil
}

// Create adds a verified local user. Unknown roles become STUDENT.
func (a *Admin) Create(ctx context.Context, in CreateUserInput) (user.View, error) {
	const op = "admin.create"
	email := security.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	role := user.ParseRole(in.Role)

	if err := validateName(op, name, 2); err != nil {
		return user.View{}, err
	}
	if err := validateEmail(op, email); err != nil {
		return user.View{}, err
	}
	if err := validatePassword(op, in.Password); err != nil {
		return user.View{}, err
	}

	if _, err := a.users.FindByEmail(ctx, email); err == nil {
		return user.View{}, apperr.Conflict(op, msgEmailRegistered)
	} else if !errors.Is(err, user.ErrNotFound) {
		return user.View{}, internal(op, err)
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return user.View{}, internal(op, err)
	}

	u, err := a.users.Save(ctx, user.User{
		ID:                  a.newID(),
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		EmailVerified:       true,
		Role:                role,
		AssignedResourceIDs: user.SanitizeResourceIDs(in.AssignedResourceIDs, role),
	})
	if err != nil {
		return user.View{}, storeErr(op, err)
	}

	a.log.InfoContext(ctx, "user created by admin", "op", op, "email", email, "user_id", u.ID, "role", u.Role)
	return u.View(), nil
}

func (a *Admin) Update(ctx context.Context, id string, in UpdateUserInput) (user.View, error) {
	const op = "admin.update"

	u, err := a.find(ctx, op, id)
	if err != nil {
		return user.View{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateName(op, name, 2); err != nil {
			return user.View{}, err
		}
		u.Name = name
	}

	if in.Email != nil {
		email := security.NormalizeEmail(*in.Email)
		if err := validateEmail(op, email); err != nil {
			return user.View{}, err
		}
		if !strings.EqualFold(email, u.Email) {
			if other, err := a.users.FindByEmail(ctx, email); err == nil && other.ID != u.ID {
				return user.View{}, apperr.Conflict(op, msgEmailRegistered)
			} else if err != nil && !errors.Is(err, user.ErrNotFound) {
				return user.View{}, internal(op, err)
			}
		}
		u.Email = email
	}

	if in.Password != nil {
		if err := validatePassword(op, *in.Password); err != nil {
			return user.View{}, err
		}
		hash, err := a.hasher.Hash(*in.Password)
		if err != nil {
			return user.View{}, internal(op, err)
		}
		u.PasswordHash = hash
	}

	if in.Role != nil {
		u.Role = user.ParseRole(*in.Role)
	}

	ids := u.AssignedResourceIDs
	if in.AssignedResourceIDs != nil {
		ids = *in.AssignedResourceIDs
	}
	u.AssignedResourceIDs = user.SanitizeResourceIDs(ids, u.Role)

	u, err = a.users.Save(ctx, u)
	if err != nil {
		return user.View{}, storeErr(op, err)
	}

	a.log.InfoContext(ctx, "user updated by admin", "op", op, "user_id", u.ID)
	return u.View(), nil
}

func (a *Admin) Delete(ctx context.Context, id string) error {
	const op = "admin.delete"

	if err := a.users.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.NotFound(op, "User not found")
		}
		return internal(op, err)
	}

	a.log.InfoContext(ctx, "user deleted by admin", "op", op, "user_id", id)
	return nil
}

func (a *Admin) find(ctx context.Context, op, id string) (user.User, error) {
	u, err := a.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.NotFound(op, "User not found")
		}
		return user.User{}, internal(op, err)
	}
	return u, nil
}
