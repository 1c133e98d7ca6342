package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/capability"
	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/service"
	"github.com/rr-brian/rts-ai/internal/transport/http/middleware"
	"github.com/rr-brian/rts-ai/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *helpers.StubCompleter) {
	t.Helper()

	cfg := &config.Config{
		Environment: config.EnvDevelopment,
		Completion: config.CompletionConfig{
			Endpoint:   "https://example.openai.azure.com",
			APIKey:     "super-secret-key",
			Deployment: "gpt-4o",
		},
	}
	cfg.Validate()

	report := capability.NewReport()
	capability.Resolve(report, capability.SQL, func() (bool, error) { return true, nil }, func() bool { return false })

	completer := &helpers.StubCompleter{Body: []byte(`{"id":"c1","choices":[{"message":{"role":"assistant","content":"hi"}}]}`)}
	svc := service.New(service.Deps{
		Store:     helpers.NewTestSQLiteStore(t),
		Completer: completer,
		Config:    cfg,
		Report:    report,
	})
	return NewHandler(svc, nil), completer
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertCode(t *testing.T, err error, code apperr.Code, status int) {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok, "expected classified error, got %v", err)
	assert.Equal(t, code, e.Code)
	assert.Equal(t, status, e.Status)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := newContext(http.MethodGet, "/api/health", "")

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestConfig(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := newContext(http.MethodGet, "/api/config", "")

	require.NoError(t, h.Config(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	assert.NotContains(t, rec.Body.String(), "super-secret-key")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["completionEndpointConfigured"])
	assert.Equal(t, "gpt-4o", resp["completionDeploymentName"])
	assert.Equal(t, true, resp["hasApiKey"])
	assert.Equal(t, true, resp["persistenceEnabled"])
}

func TestCompletionProxyRelaysBody(t *testing.T) {
	h, completer := newTestHandler(t)
	c, rec := newContext(http.MethodPost, "/api/azure-openai", `{"messages":[{"role":"user","content":"hello"}],"max_tokens":50}`)

	require.NoError(t, h.CompletionProxy(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(completer.Body), rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON))
	require.Equal(t, 1, completer.Calls())
	assert.Equal(t, 50, completer.Requests[0].MaxTokens)
}

func TestCompletionProxyRejectsInvalidBody(t *testing.T) {
	h, completer := newTestHandler(t)

	c, _ := newContext(http.MethodPost, "/api/azure-openai", `{"messages":`)
	assertCode(t, h.CompletionProxy(c), apperr.CodeClientInput, http.StatusBadRequest)

	c, _ = newContext(http.MethodPost, "/api/azure-openai", `{"messages":"hello"}`)
	assertCode(t, h.CompletionProxy(c), apperr.CodeClientInput, http.StatusBadRequest)

	assert.Equal(t, 0, completer.Calls())
}

func TestCompletionProxyRateLimited(t *testing.T) {
	h, _ := newTestHandler(t)
	h.limiter = middleware.NewRateLimiter(1, 1)

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.NoContent(apperr.StatusOf(err))
	}
	h.RegisterRoutes(e.Group("/api"))

	body := `{"messages":[{"role":"user","content":"hello"}]}`
	var codes []int
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/azure-openai", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestUpdateConversationCreatedThenUpdated(t *testing.T) {
	h, _ := newTestHandler(t)

	c, rec := newContext(http.MethodPost, "/api/conversations/update", `{"messages":[{"role":"user","content":"Hi"}]}`)
	require.NoError(t, h.UpdateConversation(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ConversationID string `json:"conversationId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ConversationID)

	c, rec = newContext(http.MethodPost, "/api/conversations/update",
		`{"conversationId":"`+created.ConversationID+`","messages":[{"role":"user","content":"Hi"},{"role":"assistant","content":"Hello"}]}`)
	require.NoError(t, h.UpdateConversation(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversationId":"`+created.ConversationID+`"}`, rec.Body.String())

	c, rec = newContext(http.MethodGet, "/api/conversations/"+created.ConversationID, "")
	c.SetParamNames("conversationId")
	c.SetParamValues(created.ConversationID)
	require.NoError(t, h.GetConversation(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var conv map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, created.ConversationID, conv["ConversationId"])
	assert.EqualValues(t, 2, conv["MessageCount"])
	assert.Equal(t, "Hello", conv["LastAssistantMessage"])
}

func TestUpdateConversationInvalidMessages(t *testing.T) {
	h, _ := newTestHandler(t)

	c, _ := newContext(http.MethodPost, "/api/conversations/update", `{"messages":{"role":"user"}}`)
	assertCode(t, h.UpdateConversation(c), apperr.CodeClientInput, http.StatusBadRequest)
}

func TestGetConversationNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	c, _ := newContext(http.MethodGet, "/api/conversations/missing", "")
	c.SetParamNames("conversationId")
	c.SetParamValues("missing")
	assertCode(t, h.GetConversation(c), apperr.CodeNotFound, http.StatusNotFound)
}

func TestListConversationsEmpty(t *testing.T) {
	h, _ := newTestHandler(t)

	c, rec := newContext(http.MethodGet, "/api/conversations/user/nobody", "")
	c.SetParamNames("userId")
	c.SetParamValues("nobody")
	require.NoError(t, h.ListConversations(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestConversationRoutesPreferUserPath(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	h.RegisterConversationRoutes(e.Group("/api/conversations"))

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/update",
		strings.NewReader(`{"userId":"u1","messages":[{"role":"user","content":"Hi"}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversations/user/u1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0]["UserId"])
	assert.NotContains(t, list[0], "ConversationState")
}

func TestConversationsUnavailable(t *testing.T) {
	e := echo.New()
	RegisterUnavailableConversationRoutes(e.Group("/api/conversations"))

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/conversations/update"},
		{http.MethodGet, "/api/conversations/abc"},
		{http.MethodGet, "/api/conversations/user/u1"},
		{http.MethodDelete, "/api/conversations"},
	} {
		c, _ := newContext(r.method, r.path, "")
		c.SetPath("/api/conversations/*")
		assertCode(t, ConversationsUnavailable(c), apperr.CodeResourceUnavailable, http.StatusServiceUnavailable)
	}
}
