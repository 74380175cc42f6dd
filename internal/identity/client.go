// Package identity talks to a GoTrue-compatible hosted identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/smartq/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBody caps how much of a provider response is read.
const maxBody = 1 << 20

type Config struct {
	BaseURL    string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
	prom       *observability.Prom
}

func NewClient(cfg Config, prom *observability.Prom) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		prom: prom,
	}
}

// CreateUser creates an already-confirmed identity using the service key.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (RemoteUser, error) {
	body := createUserRequest{
		Email:        in.Email,
		Password:     in.Password,
		EmailConfirm: true,
		UserMetadata: Metadata{Name: in.Name, Role: in.Role},
	}

	var out RemoteUser
	err := c.do(ctx, "create_user", "/auth/v1/admin/users", c.serviceKey, body, &out)
	return out, err
}

// SendOTP asks the provider to email a one-time code to an existing identity.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	body := otpRequest{Email: email, CreateUser: false}
	return c.do(ctx, "send_otp", "/auth/v1/otp", c.anonKey, body, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, token string) (RemoteUser, error) {
	body := verifyRequest{Email: email, Token: token, Type: "email"}

	var out sessionResponse
	if err := c.do(ctx, "verify_otp", "/auth/v1/verify", c.anonKey, body, &out); err != nil {
		return RemoteUser{}, err
	}
	if out.User == nil || out.User.ID == "" {
		return RemoteUser{}, &ProviderError{Op: "verify_otp", Status: http.StatusOK, Err: ErrMissingUser}
	}
	return *out.User, nil
}

// PasswordLogin runs the password grant and returns the authenticated identity.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (RemoteUser, error) {
	body := passwordGrantRequest{Email: email, Password: password}

	var out sessionResponse
	if err := c.do(ctx, "password_login", "/auth/v1/token?grant_type=password", c.anonKey, body, &out); err != nil {
		return RemoteUser{}, err
	}
	if out.User == nil || out.User.ID == "" {
		return RemoteUser{}, &ProviderError{Op: "password_login", Status: http.StatusOK, Err: ErrMissingUser}
	}
	return *out.User, nil
}

func (c *Client) do(ctx context.Context, op, path, key string, in any, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.prom != nil {
			c.prom.ObserveProvider(op, resultLabel(err), time.Since(start))
		}
	}()

	payload, err := json.Marshal(in)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &ProviderError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProviderError{Op: op, Status: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func resultLabel(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500:
		return "rejected"
	default:
		return "error"
	}
}
