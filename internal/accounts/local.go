package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/smartq/internal/apperr"
	"github.com/geocoder89/smartq/internal/domain/registration"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/lock"
	"github.com/geocoder89/smartq/internal/notifications"
	"github.com/geocoder89/smartq/internal/security"
	"github.com/google/uuid"
)

type LocalConfig struct {
	AppName  string
	TokenTTL int64 // seconds
	LogCodes bool  // dev only: echo one-time codes to the log
}

// LocalFlow is the self-hosted path: start -> verify code -> complete,
// plus password login against the stored hash.
type LocalFlow struct {
	users   UserStore
	pending PendingStore
	hasher  security.Hasher
	mailer  notifications.Mailer
	locks   lock.Locker
	sess    sessions
	cfg     LocalConfig
	log     *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewLocalFlow(
	users UserStore,
	pending PendingStore,
	hasher security.Hasher,
	mailer notifications.Mailer,
	tokens TokenIssuer,
	locks lock.Locker,
	cfg LocalConfig,
	log *slog.Logger,
) *LocalFlow {
	if cfg.AppName == "" {
		cfg.AppName = "SmartQ"
	}
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}

	return &LocalFlow{
		users:   users,
		pending: pending,
		hasher:  hasher,
		mailer:  mailer,
		locks:   locks,
		sess:    sessions{tokens: tokens, ttl: cfg.TokenTTL},
		cfg:     cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Start stores a pending registration and emails its code. A delivery
// failure leaves the pending record in place; calling Start again resends.
func (f *LocalFlow) Start(ctx context.Context, name, email, password string) error {
	const op = "local.start"
	email = security.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateName(op, name, 1); err != nil {
		return err
	}
	if err := validateEmail(op, email); err != nil {
		return err
	}
	if err := validatePassword(op, password); err != nil {
		return err
	}

	// held across hash, store and send so the mailed code always matches
	// the stored record
	unlock, err := f.locks.Lock(ctx, email)
	if err != nil {
		f.log.ErrorContext(ctx, "registration lock failed", "op", op, "email", email, "err", err)
		return internal(op, err)
	}
	defer unlock()

	if _, err := f.users.FindByEmail(ctx, email); err == nil {
		return apperr.Conflict(op, msgEmailRegistered)
	} else if !errors.Is(err, user.ErrNotFound) {
		f.log.ErrorContext(ctx, "user lookup failed", "op", op, "email", email, "err", err)
		return internal(op, err)
	}

	hash, err := f.hasher.Hash(password)
	if err != nil {
		return internal(op, err)
	}

	code, err := registration.NewCode()
	if err != nil {
		return internal(op, err)
	}

	p := registration.NewPending(email, name, hash, code, f.now())
	if err := f.pending.Upsert(ctx, p); err != nil {
		f.log.ErrorContext(ctx, "pending upsert failed", "op", op, "email", email, "err", err)
		return internal(op, err)
	}

	if f.cfg.LogCodes {
		f.log.DebugContext(ctx, "verification code issued", "op", op, "email", email, "code", code)
	}

	msg := notifications.VerificationMessage(f.cfg.AppName, code, registration.CodeTTL)
	if err := f.mailer.Send(ctx, email, msg.Subject, msg.Body); err != nil {
		f.log.WarnContext(ctx, "verification email failed", "op", op, "email", email, "err", err)
		return apperr.Delivery(op, err)
	}

	f.log.InfoContext(ctx, "registration started", "op", op, "email", email, "expires_at", p.ExpiresAt)
	return nil
}

// VerifyCode is a no-op for an already verified record.
func (f *LocalFlow) VerifyCode(ctx context.Context, email, code string) error {
	const op = "local.verify"
	email = security.NormalizeEmail(email)

	p, err := f.findPending(ctx, op, email)
	if err != nil {
		return err
	}

	if p.Verified {
		return nil
	}

	if p.Code != strings.TrimSpace(code) {
		f.log.InfoContext(ctx, "verification code mismatch", "op", op, "email", email)
		return apperr.Validation(op, "code", "Invalid verification code")
	}
	if p.Expired(f.now()) {
		f.log.InfoContext(ctx, "verification code expired", "op", op, "email", email)
		return apperr.Validation(op, "code", "Verification code has expired")
	}

	p.Verified = true
	if err := f.pending.Upsert(ctx, p); err != nil {
		f.log.ErrorContext(ctx, "pending upsert failed", "op", op, "email", email, "err", err)
		return internal(op, err)
	}
	return nil
}

// Complete turns a verified pending record into a user and signs them in.
func (f *LocalFlow) Complete(ctx context.Context, email string) (AuthResult, error) {
	const op = "local.complete"
	email = security.NormalizeEmail(email)

	p, err := f.findPending(ctx, op, email)
	if err != nil {
		return AuthResult{}, err
	}
	if !p.Verified {
		return AuthResult{}, apperr.Conflict(op, "Email not verified yet")
	}

	u, err := f.users.Save(ctx, user.User{
		ID:                  f.newID(),
		Name:                p.Name,
		Email:               p.Email,
		PasswordHash:        p.PasswordHash,
		EmailVerified:       true,
		Role:                user.DefaultRole,
		AssignedResourceIDs: []string{},
	})
	if err != nil {
		f.log.WarnContext(ctx, "user materialization failed", "op", op, "email", email, "err", err)
		return AuthResult{}, storeErr(op, err)
	}

	if err := f.pending.Delete(ctx, email); err != nil {
		f.log.WarnContext(ctx, "pending delete failed", "op", op, "email", email, "err", err)
	}

	f.log.InfoContext(ctx, "registration completed", "op", op, "email", email, "user_id", u.ID)
	return f.sess.open(op, u)
}

func (f *LocalFlow) Login(ctx context.Context, email, password string) (AuthResult, error) {
	const op = "local.login"
	email = security.NormalizeEmail(email)

	u, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return AuthResult{}, apperr.InvalidCredentials(op)
		}
		f.log.ErrorContext(ctx, "user lookup failed", "op", op, "email", email, "err", err)
		return AuthResult{}, internal(op, err)
	}

	if !f.hasher.Verify(password, u.PasswordHash) {
		return AuthResult{}, apperr.InvalidCredentials(op)
	}
	if !u.EmailVerified {
		return AuthResult{}, apperr.EmailNotVerified(op)
	}

	return f.sess.open(op, u)
}

func (f *LocalFlow) findPending(ctx context.Context, op, email string) (registration.Pending, error) {
	p, err := f.pending.Find(ctx, email)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			return registration.Pending{}, apperr.NotFound(op, "No pending registration for this email")
		}
		f.log.ErrorContext(ctx, "pending lookup failed", "op", op, "email", email, "err", err)
		return registration.Pending{}, internal(op, err)
	}
	return p, nil
}
