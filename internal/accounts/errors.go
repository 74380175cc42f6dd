package accounts

import (
	"errors"
	"strings"

	"github.com/geocoder89/smartq/internal/apperr"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/security"
)

const (
	msgInvalidEmail    = "Invalid email format"
	msgWeakPassword    = "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter, a digit and a special character"
	msgNameRequired    = "Name is required"
	msgNameTooShort    = "Name must be at least 2 characters"
	msgEmailRegistered = "Email already registered"
	msgIdentityClash   = "This email belongs to a local account; sign in with the local login instead"
)

func internal(op string, err error) error {
	return apperr.Internal(op, err)
}

// storeErr maps a failed user save onto the taxonomy.
func storeErr(op string, err error) error {
	if errors.Is(err, user.ErrEmailTaken) {
		return apperr.Conflict(op, msgEmailRegistered)
	}
	return apperr.Internal(op, err)
}

func validateEmail(op, email string) error {
	if !security.ValidEmail(email) {
		return apperr.Validation(op, "email", msgInvalidEmail)
	}
	return nil
}

func validatePassword(op, password string) error {
	if !security.ValidPassword(password) {
		return apperr.Validation(op, "password", msgWeakPassword)
	}
	return nil
}

func validateName(op, name string, min int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation(op, "name", msgNameRequired)
	}
	if len([]rune(name)) < min {
		return apperr.Validation(op, "name", msgNameTooShort)
	}
	return nil
}

// displayName falls back to the local part of the email.
func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
