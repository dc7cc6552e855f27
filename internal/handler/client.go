package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/biletera/client-service/internal/inventory"
	"github.com/biletera/client-service/internal/middleware"
	"github.com/biletera/client-service/internal/model"
	"github.com/biletera/client-service/internal/repository"
	"github.com/biletera/client-service/internal/service"
)

// ClientHandler exposes the client profile CRUD and ticket operations
// over HTTP. JWT authentication is applied by middleware; the handler
// still enforces per-record ownership because a client may only manage
// their own profile while an admin may manage any.
type ClientHandler struct {
	Service *service.ClientService
}

func NewClientHandler(s *service.ClientService) *ClientHandler {
	if s == nil {
		panic("nil service passed to NewClientHandler")
	}
	return &ClientHandler{Service: s}
}

type clientReq struct {
	Email         string            `json:"email"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	PublicProfile bool              `json:"publicProfile"`
	SocialLinks   map[string]string `json:"socialLinks"`
}

func (r clientReq) validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("email is required and must be valid")
	}
	return nil
}

type clientSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// CreateClient handles POST /v1/clients. The profile is linked to the
// authenticated IDM user; one profile per user.
func (h *ClientHandler) CreateClient(c echo.Context) error {
	idmUserID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body clientReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := body.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	created, err := h.Service.CreateClient(c.Request().Context(), idmUserID, service.ClientInput{
		Email:         body.Email,
		FirstName:     body.FirstName,
		LastName:      body.LastName,
		PublicProfile: body.PublicProfile,
		SocialLinks:   body.SocialLinks,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetClient handles GET /v1/clients/:id.
func (h *ClientHandler) GetClient(c echo.Context) error {
	cl, err := h.Service.GetClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// ListClients handles GET /v1/clients. With ?email= it searches for a
// single client; otherwise it returns one page of summaries with
// pagination metadata.
func (h *ClientHandler) ListClients(c echo.Context) error {
	ctx := c.Request().Context()
	if email := c.QueryParam("email"); email != "" {
		cl, err := h.Service.GetClientByEmail(ctx, email)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"client": cl})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, err := strconv.Atoi(c.QueryParam("size"))
	if err != nil || size <= 0 {
		size = 10
	}
	clients, total, err := h.Service.ListClients(ctx, page, size)
	if err != nil {
		return writeServiceError(c, err)
	}
	summaries := make([]clientSummary, 0, len(clients))
	for _, cl := range clients {
		summaries = append(summaries, clientSummary{
			ID:        cl.ID,
			Email:     cl.Email,
			FirstName: cl.FirstName,
			LastName:  cl.LastName,
		})
	}
	totalPages := (total + size - 1) / size
	return c.JSON(http.StatusOK, echo.Map{
		"clients":     summaries,
		"currentPage": page,
		"totalPages":  totalPages,
		"totalItems":  total,
	})
}

// UpdateClient handles PUT /v1/clients/:id.
func (h *ClientHandler) UpdateClient(c echo.Context) error {
	existing, err := h.Service.GetClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	if !ownsProfile(c, existing) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only manage your own client profile"})
	}
	var body clientReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := body.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	updated, err := h.Service.UpdateClient(c.Request().Context(), existing.ID, service.ClientInput{
		Email:         body.Email,
		FirstName:     body.FirstName,
		LastName:      body.LastName,
		PublicProfile: body.PublicProfile,
		SocialLinks:   body.SocialLinks,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteClient handles DELETE /v1/clients/:id. Deletion is refused
// while the client still owns tickets.
func (h *ClientHandler) DeleteClient(c echo.Context) error {
	existing, err := h.Service.GetClient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	if !ownsProfile(c, existing) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only manage your own client profile"})
	}
	if err := h.Service.DeleteClient(c.Request().Context(), existing.ID); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ownsProfile reports whether the caller may manage the given profile:
// admins always, clients only their own.
func ownsProfile(c echo.Context, cl model.Client) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	id, ok := middleware.UserID(c)
	return ok && id == cl.IDMUserID
}

// writeServiceError maps service and repository errors onto HTTP
// responses. Partial failures deliberately return the inconsistent code
// and its condition so the caller knows not to blindly retry.
func writeServiceError(c echo.Context, err error) error {
	var pf *service.PartialFailureError
	switch {
	case errors.Is(err, repository.ErrClientNotFound),
		errors.Is(err, service.ErrTicketNotOwned),
		errors.Is(err, inventory.ErrReferenceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrOwnerExists),
		errors.Is(err, inventory.ErrCodeConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrVersionConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent modification, retry the operation"})
	case errors.Is(err, service.ErrInvalidIntent):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrHasTickets),
		errors.Is(err, inventory.ErrUnprocessable):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, inventory.ErrUnavailable):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "inventory service unavailable"})
	case errors.As(err, &pf):
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":     "ticket left in an inconsistent state, do not retry",
			"code":      pf.Code,
			"condition": pf.Condition,
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
