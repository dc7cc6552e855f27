package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/biletera/client-service/internal/middleware"
	"github.com/biletera/client-service/internal/service"
)

// PurchaseTicket handles POST /v1/clients/:id/tickets. The body names
// exactly one of eventId/packageId. The caller's Authorization header
// is forwarded to the inventory service, which performs its own
// authorization of the create.
func (h *ClientHandler) PurchaseTicket(c echo.Context) error {
	existing, err := h.Service.GetClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	if !ownsProfile(c, existing) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only buy tickets for your own profile"})
	}
	var intent service.PurchaseIntent
	if err := c.Bind(&intent); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	cl, err := h.Service.Purchase(c.Request().Context(), existing.ID, intent, middleware.AuthHeader(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

// ReturnTicket handles DELETE /v1/clients/:id/tickets/:code.
func (h *ClientHandler) ReturnTicket(c echo.Context) error {
	existing, err := h.Service.GetClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	if !ownsProfile(c, existing) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only return your own tickets"})
	}
	cl, err := h.Service.Return(c.Request().Context(), existing.ID, c.Param("code"), middleware.AuthHeader(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// ListTickets handles GET /v1/clients/:id/tickets. It returns the
// denormalized per-ticket detail rows; unresolvable tickets appear as
// "missing" rows rather than being dropped.
func (h *ClientHandler) ListTickets(c echo.Context) error {
	existing, err := h.Service.GetClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	if !ownsProfile(c, existing) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only view your own tickets"})
	}
	details, err := h.Service.ListDetailed(c.Request().Context(), existing.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": details})
}
