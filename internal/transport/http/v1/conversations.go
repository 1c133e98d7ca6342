package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/domain"
	"github.com/rr-brian/rts-ai/internal/transport/http/middleware"
)

// RegisterConversationRoutes mounts the store-backed conversation router.
func (h *Handler) RegisterConversationRoutes(g *echo.Group) {
	g.POST("/update", h.UpdateConversation)
	g.GET("/user/:userId", h.ListConversations)
	g.GET("/:conversationId", h.GetConversation)
}

// RegisterUnavailableConversationRoutes mounts the fallback router that
// answers every conversation request with 503.
func RegisterUnavailableConversationRoutes(g *echo.Group) {
	g.Any("", ConversationsUnavailable)
	g.Any("/*", ConversationsUnavailable)
}

// ConversationsUnavailable reports that persistence is not running.
func ConversationsUnavailable(c echo.Context) error {
	return apperr.Unavailable("Conversation persistence is unavailable")
}

// UpdateConversation creates or updates a conversation.
// POST /api/conversations/update
func (h *Handler) UpdateConversation(c echo.Context) error {
	var req domain.UpdateConversationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	resp, err := h.service.UpdateConversation(c.Request().Context(), middleware.PrincipalFrom(c), &req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, resp)
}

// GetConversation returns one conversation with its transcript.
// GET /api/conversations/:conversationId
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.service.GetConversation(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("conversationId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conv)
}

// ListConversations returns an owner's conversation summaries, newest first.
// GET /api/conversations/user/:userId
func (h *Handler) ListConversations(c echo.Context) error {
	list, err := h.service.ListConversations(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
