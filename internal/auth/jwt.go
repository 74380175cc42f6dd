package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the HS256 key size secrets are stretched to.
const MinKeyLength = 32

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("jwt secret must not be empty")
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and checks the application's own session tokens. It holds no
// mutable state and is safe for concurrent use.
type Issuer struct {
	key []byte
	now func() time.Time
}

func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	return &Issuer{
		key: DeriveKey([]byte(secret)),
		now: time.Now,
	}, nil
}

// DeriveKey repeats secret cyclically up to MinKeyLength bytes:
// out[i] = secret[i % len(secret)]. Secrets already long enough are returned as-is.
// This is a deterministic stretch, not a KDF.
func DeriveKey(secret []byte) []byte {
	if len(secret) == 0 {
		return nil
	}
	if len(secret) >= MinKeyLength {
		return secret
	}

	out := make([]byte, MinKeyLength)
	for i := range out {
		out[i] = secret[i%len(secret)]
	}
	return out
}

// Issue builds {sub, email, iat, exp} with exp = now + ttlSeconds.
func (i *Issuer) Issue(subject, email string, ttlSeconds int64) (string, error) {
	now := i.now()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlSeconds) * time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// Validate reports whether token carries a valid signature and is not expired.
// Tokens without an exp claim are accepted. It never returns an error.
func (i *Issuer) Validate(token string) bool {
	_, err := i.parse(token)
	return err == nil
}

// SubjectOf returns the sub claim of a valid token.
func (i *Issuer) SubjectOf(token string) (string, error) {
	claims, err := i.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (i *Issuer) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
