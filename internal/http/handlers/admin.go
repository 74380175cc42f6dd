package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/smartq/internal/accounts"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserAdmin interface {
	List(ctx context.Context) ([]user.View, error)
	Get(ctx context.Context, id string) (user.View, error)
	Create(ctx context.Context, in accounts.CreateUserInput) (user.View, error)
	Update(ctx context.Context, id string, in accounts.UpdateUserInput) (user.View, error)
	Delete(ctx context.Context, id string) error
}

type StaffProvisioner interface {
	CreateStaffUser(ctx context.Context, name, email, role, tempPassword string, resourceIDs []string) (user.View, error)
}

type AdminHandler struct {
	users UserAdmin
	staff StaffProvisioner // nil when no identity provider is configured
}

func NewAdminHandler(users UserAdmin, staff StaffProvisioner) *AdminHandler {
	return &AdminHandler{users: users, staff: staff}
}

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 5*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"items": users, "count": len(users)})
}

func (h *AdminHandler) GetUser(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 5*time.Second)
	defer cancel()

	u, err := h.users.Get(cctx, ctx.Param("id"))
	if err != nil {
		RespondAppError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, u)
}

func (h *AdminHandler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 5*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, accounts.CreateUserInput{
		Name:                req.Name,
		Email:               req.Email,
		Password:            req.Password,
		Role:                req.Role,
		AssignedResourceIDs: req.AssignedResourceIDs,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, u)
}

func (h *AdminHandler) UpdateUser(ctx *gin.Context) {
	var req UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 5*time.Second)
	defer cancel()

	u, err := h.users.Update(cctx, ctx.Param("id"), accounts.UpdateUserInput{
		Name:                req.Name,
		Email:               req.Email,
		Password:            req.Password,
		Role:                req.Role,
		AssignedResourceIDs: req.AssignedResourceIDs,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, u)
}

func (h *AdminHandler) DeleteUser(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 5*time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, ctx.Param("id")); err != nil {
		RespondAppError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *AdminHandler) CreateStaff(ctx *gin.Context) {
	var req CreateStaffRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, externalTimeout)
	defer cancel()

	u, err := h.staff.CreateStaffUser(cctx, req.Name, req.Email, req.Role, req.TempPassword, req.AssignedResourceIDs)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, u)
}
