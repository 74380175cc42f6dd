package http

import (
	"log/slog"

	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/http/handlers"
	"github.com/geocoder89/smartq/internal/http/middlewares"
	"github.com/geocoder89/smartq/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 64 << 10

type Deps struct {
	Env         string
	Log         *slog.Logger
	CORSOrigins []string

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer // nil disables /metrics

	Tokens middlewares.TokenVerifier
	Users  middlewares.UserFinder

	Local    handlers.LocalFlow
	External handlers.ExternalFlow // nil when no identity provider is configured
	Admin    handlers.UserAdmin
	Staff    handlers.StaffProvisioner

	Checks map[string]handlers.Check
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("smartq-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	authMW := middlewares.NewAuthMiddleware(d.Tokens, d.Users, d.Log)
	r.Use(authMW.Authenticate())

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, 404, "not_found", "Route not found", nil)
	})

	// health
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authHandler := handlers.NewAuthHandler(d.Local, d.External)

	local := r.Group("/auth/local")
	{
		local.POST("/register", authHandler.LocalRegister)
		local.POST("/verify", authHandler.LocalVerify)
		local.POST("/complete", authHandler.LocalComplete)
		local.POST("/login", authHandler.LocalLogin)
	}

	if d.External != nil {
		ext := r.Group("/auth")
		ext.POST("/register", authHandler.Register)
		ext.POST("/verify-otp", authHandler.VerifyOTP)
		ext.POST("/login", authHandler.Login)
	}

	r.GET("/me", authMW.RequireAuth(), handlers.Me)

	adminHandler := handlers.NewAdminHandler(d.Admin, d.Staff)
	admin := r.Group("/admin", authMW.RequireRole(user.RoleAdmin))
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users", adminHandler.CreateUser)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		if d.Staff != nil {
			admin.POST("/staff", adminHandler.CreateStaff)
		}
	}

	return r
}
