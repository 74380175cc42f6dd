package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/smartq/internal/accounts"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const (
	localTimeout    = 15 * time.Second
	externalTimeout = 45 * time.Second
)

type LocalFlow interface {
	Start(ctx context.Context, name, email, password string) error
	VerifyCode(ctx context.Context, email, code string) error
	Complete(ctx context.Context, email string) (accounts.AuthResult, error)
	Login(ctx context.Context, email, password string) (accounts.AuthResult, error)
}

type ExternalFlow interface {
	RegisterStudent(ctx context.Context, name, email, password string) (user.View, error)
	VerifyOTP(ctx context.Context, email, token string) (accounts.AuthResult, error)
	Login(ctx context.Context, email, password string) (accounts.AuthResult, error)
}

type AuthHandler struct {
	local    LocalFlow
	external ExternalFlow
}

func NewAuthHandler(local LocalFlow, external ExternalFlow) *AuthHandler {
	return &AuthHandler{local: local, external: external}
}

// requestCtx bounds the request's own context so trace spans carry through.
func requestCtx(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

func (h *AuthHandler) LocalRegister(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, localTimeout)
	defer cancel()

	if err := h.local.Start(cctx, req.Name, req.Email, req.Password); err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"message": "Verification code sent. Check your email.",
		"email":   req.Email,
	})
}

func (h *AuthHandler) LocalVerify(ctx *gin.Context) {
	var req VerifyCodeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, localTimeout)
	defer cancel()

	if err := h.local.VerifyCode(cctx, req.Email, req.Code); err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Email verified",
		"email":   req.Email,
	})
}

func (h *AuthHandler) LocalComplete(ctx *gin.Context) {
	var req CompleteRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, localTimeout)
	defer cancel()

	res, err := h.local.Complete(cctx, req.Email)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) LocalLogin(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, localTimeout)
	defer cancel()

	res, err := h.local.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, externalTimeout)
	defer cancel()

	view, err := h.external.RegisterStudent(cctx, req.Name, req.Email, req.Password)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Check your email for the verification code.",
		"user":    view,
	})
}

func (h *AuthHandler) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, externalTimeout)
	defer cancel()

	res, err := h.external.VerifyOTP(cctx, req.Email, req.Token)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, externalTimeout)
	defer cancel()

	res, err := h.external.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}
