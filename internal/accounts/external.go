package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/smartq/internal/apperr"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/identity"
	"github.com/geocoder89/smartq/internal/security"
)

// Reconciler runs the provider-backed flows and keeps the local users table
// in step with the provider. The provider owns credentials and email
// verification; the local row owns role, points and assignments.
type Reconciler struct {
	idp   Provider
	users UserStore
	sess  sessions
	log   *slog.Logger
}

func NewReconciler(idp Provider, users UserStore, tokens TokenIssuer, tokenTTL int64, log *slog.Logger) *Reconciler {
	return &Reconciler{
		idp:   idp,
		users: users,
		sess:  sessions{tokens: tokens, ttl: tokenTTL},
		log:   log,
	}
}

// RegisterStudent creates a confirmed remote identity, stores the local
// profile unverified, then asks the provider to email a code.
//
// If the local save fails after the remote create, the remote identity is
// orphaned; it is logged for manual cleanup and not rolled back.
func (r *Reconciler) RegisterStudent(ctx context.Context, name, email, password string) (user.View, error) {
	const op = "external.register"
	email = security.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateName(op, name, 1); err != nil {
		return user.View{}, err
	}
	if err := validateEmail(op, email); err != nil {
		return user.View{}, err
	}
	if err := validatePassword(op, password); err != nil {
		return user.View{}, err
	}

	remote, err := r.idp.CreateUser(ctx, identity.CreateUserInput{Name: name, Email: email, Password: password})
	if err != nil {
		return user.View{}, r.createErr(ctx, op, email, err)
	}

	u, err := r.users.Save(ctx, user.User{
		ID:                  remote.ID,
		Name:                name,
		Email:               email,
		EmailVerified:       false,
		Role:                user.DefaultRole,
		AssignedResourceIDs: []string{},
	})
	if err != nil {
		r.log.ErrorContext(ctx, "local profile save failed; remote identity orphaned",
			"op", op, "email", email, "remote_id", remote.ID, "err", err)
		return user.View{}, storeErr(op, err)
	}

	if err := r.idp.SendOTP(ctx, email); err != nil {
		r.logProviderErr(ctx, op, email, err)
		return user.View{}, providerErr(op, err)
	}

	r.log.InfoContext(ctx, "student registered", "op", op, "email", email, "user_id", u.ID)
	return u.View(), nil
}

// VerifyOTP confirms the emailed code with the provider and marks the local
// profile verified, creating it if an earlier step never did.
func (r *Reconciler) VerifyOTP(ctx context.Context, email, token string) (AuthResult, error) {
	const op = "external.verify_otp"
	email = security.NormalizeEmail(email)

	if strings.TrimSpace(token) == "" {
		return AuthResult{}, apperr.Validation(op, "token", "Verification code is required")
	}

	remote, err := r.idp.VerifyOTP(ctx, email, strings.TrimSpace(token))
	if err != nil {
		r.logProviderErr(ctx, op, email, err)
		if identity.IsRejected(err) {
			return AuthResult{}, apperr.Validation(op, "token", "Invalid or expired verification code")
		}
		return AuthResult{}, providerErr(op, err)
	}

	u, err := r.reconcile(ctx, op, email, remote, true)
	if err != nil {
		return AuthResult{}, err
	}
	return r.sess.open(op, u)
}

// Login authenticates against the provider and signs the caller in with a
// local token keyed on the local user id.
func (r *Reconciler) Login(ctx context.Context, email, password string) (AuthResult, error) {
	const op = "external.login"
	email = security.NormalizeEmail(email)

	remote, err := r.idp.PasswordLogin(ctx, email, password)
	if err != nil {
		r.logProviderErr(ctx, op, email, err)
		if identity.IsRejected(err) {
			return AuthResult{}, apperr.InvalidCredentials(op)
		}
		return AuthResult{}, providerErr(op, err)
	}

	u, err := r.reconcile(ctx, op, email, remote, remote.Confirmed())
	if err != nil {
		return AuthResult{}, err
	}
	if !remote.Confirmed() {
		return AuthResult{}, apperr.EmailNotVerified(op)
	}
	return r.sess.open(op, u)
}

// CreateStaffUser provisions a confirmed identity with an explicit role.
func (r *Reconciler) CreateStaffUser(ctx context.Context, name, email, role, tempPassword string, resourceIDs []string) (user.View, error) {
	const op = "external.create_staff"
	email = security.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	parsed := user.ParseRole(role)

	if err := validateName(op, name, 2); err != nil {
		return user.View{}, err
	}
	if err := validateEmail(op, email); err != nil {
		return user.View{}, err
	}
	if err := validatePassword(op, tempPassword); err != nil {
		return user.View{}, err
	}

	remote, err := r.idp.CreateUser(ctx, identity.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: tempPassword,
		Role:     string(parsed),
	})
	if err != nil {
		return user.View{}, r.createErr(ctx, op, email, err)
	}

	u, err := r.users.Save(ctx, user.User{
		ID:                  remote.ID,
		Name:                name,
		Email:               email,
		EmailVerified:       true,
		Role:                parsed,
		AssignedResourceIDs: user.SanitizeResourceIDs(resourceIDs, parsed),
	})
	if err != nil {
		r.log.ErrorContext(ctx, "local profile save failed; remote identity orphaned",
			"op", op, "email", email, "remote_id", remote.ID, "err", err)
		return user.View{}, storeErr(op, err)
	}

	r.log.InfoContext(ctx, "staff user created", "op", op, "email", email, "user_id", u.ID, "role", u.Role)
	return u.View(), nil
}

// reconcile returns the local profile for remote, creating it when missing
// and raising EmailVerified when the provider says so. It never lowers the
// flag and never touches role.
func (r *Reconciler) reconcile(ctx context.Context, op, email string, remote identity.RemoteUser, verified bool) (user.User, error) {
	u, err := r.users.FindByID(ctx, remote.ID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		if remote.Email != "" {
			email = security.NormalizeEmail(remote.Email)
		}
		created, err := r.users.Save(ctx, user.User{
			ID:                  remote.ID,
			Name:                displayName(remote.UserMetadata.Name, email),
			Email:               email,
			EmailVerified:       verified,
			Role:                user.DefaultRole,
			AssignedResourceIDs: []string{},
		})
		if errors.Is(err, user.ErrEmailTaken) {
			// a local-flow account owns the email under a different id
			r.log.WarnContext(ctx, "provider identity clashes with local account",
				"op", op, "email", email, "remote_id", remote.ID, "local_id", r.localIDFor(ctx, email))
			return user.User{}, apperr.Conflict(op, msgIdentityClash)
		}
		if err != nil {
			r.log.ErrorContext(ctx, "self-heal profile save failed", "op", op, "email", email, "remote_id", remote.ID, "err", err)
			return user.User{}, storeErr(op, err)
		}
		r.log.InfoContext(ctx, "local profile created from provider identity", "op", op, "email", email, "user_id", created.ID)
		return created, nil

	case err != nil:
		r.log.ErrorContext(ctx, "user lookup failed", "op", op, "email", email, "err", err)
		return user.User{}, internal(op, err)
	}

	if verified && !u.EmailVerified {
		u.EmailVerified = true
		u, err = r.users.Save(ctx, u)
		if err != nil {
			r.log.ErrorContext(ctx, "verification flag update failed", "op", op, "email", email, "err", err)
			return user.User{}, storeErr(op, err)
		}
		r.log.InfoContext(ctx, "local verification corrected from provider", "op", op, "email", email, "user_id", u.ID)
	}
	return u, nil
}

// localIDFor is best effort, for logging only.
func (r *Reconciler) localIDFor(ctx context.Context, email string) string {
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return ""
	}
	return u.ID
}

func (r *Reconciler) createErr(ctx context.Context, op, email string, err error) error {
	r.logProviderErr(ctx, op, email, err)
	if identity.IsAlreadyRegistered(err) {
		return apperr.Conflict(op, msgEmailRegistered)
	}
	return providerErr(op, err)
}

func (r *Reconciler) logProviderErr(ctx context.Context, op, email string, err error) {
	attrs := []any{"op", op, "email", email, "err", err}
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		attrs = append(attrs, "status", pe.Status, "body", pe.Body)
	}
	r.log.WarnContext(ctx, "identity provider call failed", attrs...)
}

func providerErr(op string, err error) error {
	var pe *identity.ProviderError
	body := ""
	if errors.As(err, &pe) {
		body = pe.Body
	}
	return apperr.ExternalProvider(op, body, err)
}
