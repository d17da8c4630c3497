package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/internal/logx"
	"github.com/layer-3/portal/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, limit RateLimitConfig, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logx.Middleware(logger))

	handlers := NewAuthHandlers(authService)
	limiter := RateLimitMiddleware(limit, ClientIPKey)

	router.GET("/", handlers.Dispatch)
	router.GET("/healthz", handlers.Health)
	router.GET("/error", handlers.Error)

	signin := router.Group("/signin")
	{
		signin.GET("", handlers.OpenSignIn)
		signin.GET("/:id", handlers.Screen(core.RouteSignIn))
		signin.POST("/:id", limiter, handlers.Submit(core.RouteSignIn))
		signin.GET("/:id/signup", handlers.GoToSignUp)
		signin.POST("/:id/forgot-password", handlers.OpenForgotPassword)
	}

	signup := router.Group("/signup")
	{
		signup.GET("", handlers.OpenSignUp)
		signup.GET("/:id", handlers.Screen(core.RouteSignUp))
		signup.POST("/:id", limiter, handlers.Submit(core.RouteSignUp))
		signup.GET("/:id/signin", handlers.GoToSignIn)
	}

	forgot := router.Group("/forgot-password")
	{
		forgot.GET("/:id", handlers.ForgotPassword)
		forgot.POST("/:id", limiter, handlers.SubmitForgotPassword)
	}

	request := router.Group("/request")
	{
		request.GET("", handlers.OpenRequest)
		request.GET("/:id", handlers.Request)
		request.POST("/:id", limiter, handlers.SubmitRequest)
	}

	router.DELETE("/screens/:id", handlers.CloseScreen)
	router.NoRoute(handlers.NotFound)

	return router
}
