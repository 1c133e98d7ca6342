package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rr-brian/rts-ai/internal/domain"
)

// CompletionProxy forwards a chat completion to the configured deployment.
// POST /api/azure-openai
func (h *Handler) CompletionProxy(c echo.Context) error {
	var req domain.CompletionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	body, err := h.service.ProxyChatCompletion(c.Request().Context(), requestID(c), &req)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}
