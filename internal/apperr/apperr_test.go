package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs_MatchesSentinelByKind(t *testing.T) {
	err := Conflict("local.start", "Email already registered")

	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict error to match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("conflict error must not match ErrNotFound")
	}
}

func TestErrorIs_ThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("handler: %w", ExternalProvider("idp.login", `{"msg":"boom"}`, cause))

	if !errors.Is(err, ErrExternalProvider) {
		t.Fatalf("wrapped provider error should match ErrExternalProvider")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped provider error should expose its cause")
	}
	if KindOf(err) != KindExternalProvider {
		t.Fatalf("got kind %q", KindOf(err))
	}

	var e *Error
	if !errors.As(err, &e) || e.Body != `{"msg":"boom"}` {
		t.Fatalf("expected raw body to be preserved, got %+v", e)
	}
}

func TestKindOf_UnknownErrorIsInternal(t *testing.T) {
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors should be classified as internal")
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil error has no kind")
	}
}

func TestMessageOf_HidesInternalDetails(t *testing.T) {
	if got := MessageOf(errors.New("pq: secret detail")); got != "Internal server error" {
		t.Fatalf("got %q", got)
	}
	if got := MessageOf(Validation("op", "email", "Invalid email")); got != "Invalid email" {
		t.Fatalf("got %q", got)
	}
}
