package accounts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/geocoder89/smartq/internal/auth"
	"github.com/geocoder89/smartq/internal/identity"
	"github.com/geocoder89/smartq/internal/repo/memory"
	"github.com/geocoder89/smartq/internal/security"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var codeRe = regexp.MustCompile(`code is: (\d{6})`)

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	match := codeRe.FindStringSubmatch(m.sent[len(m.sent)-1].body)
	require.Len(t, match, 2, "no code in mail body")
	return match[1]
}

// fakeProvider stands in for the hosted identity provider.
type fakeProvider struct {
	mu        sync.Mutex
	users     map[string]identity.RemoteUser // by email
	passwords map[string]string
	codes     map[string]string
	down      bool
	otpSent   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users:     map[string]identity.RemoteUser{},
		passwords: map[string]string{},
		codes:     map[string]string{},
	}
}

var errDown = &identity.ProviderError{Op: "test", Err: errors.New("connection refused")}

func rejected(op, body string) error {
	return &identity.ProviderError{Op: op, Status: 400, Body: body}
}

func (p *fakeProvider) CreateUser(_ context.Context, in identity.CreateUserInput) (identity.RemoteUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return identity.RemoteUser{}, errDown
	}
	if _, ok := p.users[in.Email]; ok {
		return identity.RemoteUser{}, &identity.ProviderError{Op: "create_user", Status: 422, Body: `{"error_code":"email_exists"}`}
	}
	u := identity.RemoteUser{
		ID:           "remote-" + in.Email,
		Email:        in.Email,
		UserMetadata: identity.Metadata{Name: in.Name, Role: in.Role},
	}
	p.users[in.Email] = u
	p.passwords[in.Email] = in.Password
	return u, nil
}

func (p *fakeProvider) SendOTP(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return errDown
	}
	p.codes[email] = "654321"
	p.otpSent = append(p.otpSent, email)
	return nil
}

func (p *fakeProvider) VerifyOTP(_ context.Context, email, token string) (identity.RemoteUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return identity.RemoteUser{}, errDown
	}
	if p.codes[email] == "" || p.codes[email] != token {
		return identity.RemoteUser{}, rejected("verify_otp", `{"error":"otp_expired"}`)
	}
	u := p.users[email]
	now := fixedNow
	u.EmailConfirmedAt = &now
	p.users[email] = u
	return u, nil
}

func (p *fakeProvider) PasswordLogin(_ context.Context, email, password string) (identity.RemoteUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return identity.RemoteUser{}, errDown
	}
	u, ok := p.users[email]
	if !ok || p.passwords[email] != password {
		return identity.RemoteUser{}, rejected("password_login", `{"error":"invalid_grant"}`)
	}
	return u, nil
}

// seed adds a remote identity directly, bypassing the local table.
func (p *fakeProvider) seed(u identity.RemoteUser, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.Email] = u
	p.passwords[u.Email] = password
}

type fixture struct {
	users   *memory.UsersRepo
	pending *memory.PendingRegistrationsRepo
	mailer  *fakeMailer
	idp     *fakeProvider
	issuer  *auth.Issuer
	hasher  security.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret")
	require.NoError(t, err)

	return &fixture{
		users:   memory.NewUsersRepo(),
		pending: memory.NewPendingRegistrationsRepo(),
		mailer:  &fakeMailer{},
		idp:     newFakeProvider(),
		issuer:  issuer,
		hasher:  security.NewBcryptHasher(bcrypt.MinCost),
	}
}

func (f *fixture) local() *LocalFlow {
	return NewLocalFlow(f.users, f.pending, f.hasher, f.mailer, f.issuer, nil,
		LocalConfig{AppName: "SmartQ", TokenTTL: 3600}, discardLogger())
}

func (f *fixture) reconciler() *Reconciler {
	return NewReconciler(f.idp, f.users, f.issuer, 3600, discardLogger())
}
