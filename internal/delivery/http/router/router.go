// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"acmauth/internal/delivery/http/middleware"
	"acmauth/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.POST("/contact", r.accountHandler.ContactUs)

	users := e.Group("/users")
	{
		users.POST("/register", r.accountHandler.Register)
		users.POST("/login", r.accountHandler.Login)
		users.GET("/confirm/:token", r.accountHandler.ConfirmToken)
		users.POST("/forgot", r.accountHandler.ForgotLogin)
		users.GET("/reset/:token", r.accountHandler.ResetToken)
		users.POST("/reset/:token", r.accountHandler.Reset)
		users.POST("/verify/:token", r.accountHandler.VerifyUser)
	}

	// Routes that require an authenticated session
	users.GET("/profile", r.accountHandler.GetProfile, r.authMiddleware.Authenticate)
}
