package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrMissingUser = errors.New("provider response has no user")

type Metadata struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// RemoteUser is the provider's view of an identity.
type RemoteUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	UserMetadata     Metadata   `json:"user_metadata"`
}

// Confirmed reports whether the provider considers the email verified.
func (u RemoteUser) Confirmed() bool {
	return u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero()
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string // optional, stored in metadata
}

type createUserRequest struct {
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	EmailConfirm bool     `json:"email_confirm"`
	UserMetadata Metadata `json:"user_metadata"`
}

type otpRequest struct {
	Email      string `json:"email"`
	CreateUser bool   `json:"create_user"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Type  string `json:"type"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is shared by verify and token; only the user is used.
type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *RemoteUser `json:"user"`
}

// ProviderError is any failed provider call. Body holds the raw response for
// logs only.
type ProviderError struct {
	Op     string
	Status int // 0 when the request never got a response
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("identity %s: %v", e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("identity %s: status %d: %v", e.Op, e.Status, e.Err)
	default:
		return fmt.Sprintf("identity %s: status %d", e.Op, e.Status)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsAlreadyRegistered reports whether err is the provider refusing a duplicate email.
func IsAlreadyRegistered(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Status == 0 {
		return false
	}

	body := strings.ToLower(pe.Body)
	if strings.Contains(body, "already registered") || strings.Contains(body, "already exists") || strings.Contains(body, "email_exists") {
		return true
	}
	return pe.Status == http.StatusConflict
}

// IsRejected reports a 4xx answer, as opposed to transport or 5xx failures.
func IsRejected(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500
}
