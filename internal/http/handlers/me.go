package handlers

import (
	"net/http"

	"github.com/geocoder89/smartq/internal/actorctx"
	"github.com/gin-gonic/gin"
)

func Me(ctx *gin.Context) {
	u, ok := actorctx.UserFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}
	ctx.JSON(http.StatusOK, u.View())
}
