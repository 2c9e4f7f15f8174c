// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/dmytrik/notesApi/internal/auth"
	"github.com/dmytrik/notesApi/internal/handler"
	"github.com/dmytrik/notesApi/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check
// used by load balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires all authentication-related routes. Register,
// login, refresh and logout live under /v1/auth and need no session;
// /v1/me and account deletion require a valid access token resolved by
// the authority.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authority *auth.Authority) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh exchanges a stored refresh token for a new access token
	// without rotating the refresh token itself.
	g.POST("/refresh", a.Refresh)
	// Logout deletes the refresh-token row; the token string becomes
	// useless for rotation even though it still verifies.
	g.POST("/logout", a.Logout)

	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(authority))
	protected.GET("/me", a.Me)
	protected.DELETE("/users/me", a.DeleteMe)
}

// RegisterNotes wires the note CRUD endpoints. All of them require a
// valid access token. Updates create new versions; deletes splice the
// version chain.
func RegisterNotes(e *echo.Echo, n *handler.NoteHandler, authority *auth.Authority) {
	g := e.Group("/v1/notes")
	g.Use(middleware.JWTAuth(authority))
	g.GET("", n.List)
	g.POST("", n.Create)
	g.GET("/:id", n.Get)
	g.PATCH("/:id", n.Update)
	g.DELETE("/:id", n.Delete)
}
