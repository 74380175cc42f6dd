package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"

	DefaultRole = RoleStudent
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// ParseRole maps raw input onto the enum; anything unknown becomes DefaultRole.
func ParseRole(raw string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if r.IsValid() {
		return r
	}
	return DefaultRole
}

type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"` // empty when the provider owns the credential
	EmailVerified       bool      `json:"isEmailVerified"`
	Role                Role      `json:"role"`
	Points              int       `json:"points"`
	AssignedResourceIDs []string  `json:"assignedResourceIds"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// View is the caller-facing projection of a User.
type View struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	EmailVerified       bool     `json:"isEmailVerified"`
	Role                Role     `json:"role"`
	Points              int      `json:"points"`
	AssignedResourceIDs []string `json:"assignedResourceIds"`
}

func (u User) View() View {
	ids := u.AssignedResourceIDs
	if ids == nil {
		ids = []string{}
	}

	return View{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		EmailVerified:       u.EmailVerified,
		Role:                u.Role,
		Points:              u.Points,
		AssignedResourceIDs: ids,
	}
}

// SanitizeResourceIDs trims, drops blanks and duplicates while keeping order.
// Only staff carry assignments; every other role gets an empty set.
func SanitizeResourceIDs(ids []string, role Role) []string {
	if role != RoleStaff || len(ids) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
