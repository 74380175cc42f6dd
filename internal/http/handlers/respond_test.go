package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/smartq/internal/apperr"
	"github.com/geocoder89/smartq/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestRespondAppError_StatusByKind(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Validation("op", "email", "bad"), http.StatusBadRequest, "validation"},
		{apperr.Conflict("op", "dup"), http.StatusConflict, "conflict"},
		{apperr.NotFound("op", "gone"), http.StatusNotFound, "not_found"},
		{apperr.InvalidCredentials("op"), http.StatusUnauthorized, "invalid_credentials"},
		{apperr.EmailNotVerified("op"), http.StatusForbidden, "email_not_verified"},
		{apperr.Delivery("op", errors.New("smtp")), http.StatusBadGateway, "delivery"},
		{apperr.ExternalProvider("op", `{"secret":"raw"}`, errors.New("500")), http.StatusBadGateway, "external_provider"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		handlers.RespondAppError(ctx, tc.err)

		if w.Code != tc.status {
			t.Errorf("%v: got %d want %d", tc.err, w.Code, tc.status)
		}

		var resp struct {
			Error handlers.APIError `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad json: %v", err)
		}
		if resp.Error.Code != tc.code {
			t.Errorf("%v: got code %q want %q", tc.err, resp.Error.Code, tc.code)
		}
		if resp.Error.Message == "" || resp.Error.Message == `{"secret":"raw"}` {
			t.Errorf("%v: message must be user-safe, got %q", tc.err, resp.Error.Message)
		}
	}
}
