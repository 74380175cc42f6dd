package registration

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// CodeTTL is how long an emailed code stays usable.
const CodeTTL = 10 * time.Minute

const codeDigits = 6

var ErrNotFound = errors.New("pending registration not found")

type State string

const (
	StateNone     State = "NONE"
	StatePending  State = "PENDING"
	StateVerified State = "VERIFIED"
)

// Pending is an unconfirmed local signup keyed by normalized email.
type Pending struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	Code         string    `json:"code"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// A factory to build a fresh pending record
func NewPending(email, name, passwordHash, code string, now time.Time) Pending {
	return Pending{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Code:         code,
		ExpiresAt:    now.Add(CodeTTL),
		Verified:     false,
		CreatedAt:    now,
	}
}

func (p Pending) State() State {
	if p.Verified {
		return StateVerified
	}
	return StatePending
}

// Expired is true once now is strictly after ExpiresAt.
func (p Pending) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// NewCode returns a uniformly random 6-digit numeric string.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
