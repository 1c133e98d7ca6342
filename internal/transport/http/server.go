// Package http assembles the gateway's echo server from resolved
// capabilities.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rr-brian/rts-ai/internal/adapter/llm"
	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/capability"
	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/domain"
	"github.com/rr-brian/rts-ai/internal/logger"
	"github.com/rr-brian/rts-ai/internal/policy"
	"github.com/rr-brian/rts-ai/internal/repository"
	"github.com/rr-brian/rts-ai/internal/service"
	"github.com/rr-brian/rts-ai/internal/transport/http/middleware"
	"github.com/rr-brian/rts-ai/internal/transport/http/spa"
	v1 "github.com/rr-brian/rts-ai/internal/transport/http/v1"
)

// ConfigPath is where the browser fetches its runtime configuration.
const ConfigPath = "/api/config"

// conversationRouter mounts the conversation routes on their group.
type conversationRouter func(h *v1.Handler, g *echo.Group)

// Runtime is the gateway with every capability resolved.
type Runtime struct {
	Config  *config.Config
	Report  *capability.Report
	Store   *repository.SQLStore
	Service *service.Service

	cors          echo.MiddlewareFunc
	conversations conversationRouter
}

// Bootstrap resolves all capabilities once. Only a broken access policy is
// fatal; every other failure degrades to the capability's fallback.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	report := capability.NewReport()

	cors := capability.ResolveCORS(report, cfg.Server.AllowedOrigins)
	ids := capability.ResolveIDs(report)
	tokens := capability.ResolveTokens(report, capability.DefaultEncoding)
	store := repository.ResolveSQL(ctx, report, cfg.Database)

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		store.Close()
		return nil, errors.Wrap(err, "failed to load access policy")
	}

	rt := &Runtime{
		Config: cfg,
		Report: report,
		Store:  store,
		Service: service.New(service.Deps{
			Store:     store,
			Completer: llm.NewCompleter(cfg.Completion),
			IDs:       ids,
			Tokens:    tokens,
			Policy:    engine,
			Config:    cfg,
			Report:    report,
		}),
		cors: cors,
	}
	rt.conversations = resolveConversations(ctx, report, store)

	logger.L.Info("capabilities resolved", "modes", report.Modes())
	return rt, nil
}

// resolveConversations migrates the schema and mounts the store-backed
// router, or the 503 router when migration fails.
func resolveConversations(ctx context.Context, r *capability.Report, store repository.Store) conversationRouter {
	return capability.Resolve(r, capability.Conversations,
		func() (conversationRouter, error) {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
			return func(h *v1.Handler, g *echo.Group) { h.RegisterConversationRoutes(g) }, nil
		},
		func() conversationRouter {
			return func(_ *v1.Handler, g *echo.Group) { v1.RegisterUnavailableConversationRoutes(g) }
		},
	)
}

// Close releases the store.
func (rt *Runtime) Close() error {
	return rt.Store.Close()
}

// NewServer builds the echo server. API routes are registered before the
// SPA catch-all so they always win.
func NewServer(rt *Runtime) *echo.Echo {
	cfg := rt.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit(cfg.Limits.BodyLimit))
	if rt.cors != nil {
		e.Use(rt.cors)
	}
	e.Use(middleware.Principal())

	h := v1.NewHandler(rt.Service, middleware.NewRateLimiter(cfg.Limits.CompletionRPS, cfg.Limits.CompletionBurst))

	api := e.Group("/api")
	h.RegisterRoutes(api)
	rt.conversations(h, api.Group("/conversations"))
	api.Any("", notFound)
	api.Any("/*", notFound)

	spa.NewHandler(cfg.SPA, ConfigPath).RegisterRoutes(e)
	return e
}

func notFound(c echo.Context) error {
	return echo.ErrNotFound
}

// ErrorHandler renders every failure as the JSON error body. Unmatched
// routes and wrong methods become the structured 404.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorBody(err, c.Request().URL.Path)
	if status >= http.StatusInternalServerError {
		logger.L.Error("request failed",
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"status", status,
			"error", err.Error())
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.L.Error("failed to write error response", "error", err.Error())
	}
}

func errorBody(err error, path string) (int, domain.ErrorResponse) {
	if e, ok := apperr.As(err); ok {
		return e.Status, domain.ErrorResponse{Error: e.Message, Code: string(e.Code), Details: e.Details}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed:
			return http.StatusNotFound, domain.ErrorResponse{Error: "Not found", Code: string(apperr.CodeNotFound), Path: path}
		case he.Code == http.StatusRequestEntityTooLarge:
			return he.Code, domain.ErrorResponse{Error: "Request body too large", Code: string(apperr.CodeClientInput)}
		case he.Code < http.StatusInternalServerError:
			return he.Code, domain.ErrorResponse{Error: fmt.Sprint(he.Message), Code: string(apperr.CodeClientInput)}
		}
	}

	return http.StatusInternalServerError, domain.ErrorResponse{Error: "Internal server error", Code: string(apperr.CodeInternal)}
}
