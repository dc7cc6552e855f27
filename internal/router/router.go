package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/biletera/client-service/internal/handler"    // handlers implementing the endpoints
	"github.com/biletera/client-service/internal/middleware" // JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication.
// Currently that is only the health check, used by load balancers and
// monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterClients registers the client profile and ticket endpoints.
// All of them require a valid IDM access token; per-record ownership is
// enforced inside the handlers since admins may manage any profile.
func RegisterClients(e *echo.Echo, h *handler.ClientHandler, jwtSecret string) {
	g := e.Group("/v1/clients")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("admin", "client"))

	g.POST("", h.CreateClient)
	g.GET("", h.ListClients)
	g.GET("/:id", h.GetClient)
	g.PUT("/:id", h.UpdateClient)
	g.DELETE("/:id", h.DeleteClient)

	g.POST("/:id/tickets", h.PurchaseTicket)
	g.DELETE("/:id/tickets/:code", h.ReturnTicket)
	g.GET("/:id/tickets", h.ListTickets)
}
