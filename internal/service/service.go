// Package service implements the gateway's operations over its adapters.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rr-brian/rts-ai/internal/adapter/llm"
	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/capability"
	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/domain"
	"github.com/rr-brian/rts-ai/internal/logger"
	"github.com/rr-brian/rts-ai/internal/policy"
	"github.com/rr-brian/rts-ai/internal/repository"
)

// Deps are the resolved collaborators of a Service.
type Deps struct {
	Store     repository.Store
	Completer llm.Completer
	IDs       capability.IDGenerator
	Tokens    capability.TokenEstimator
	Policy    *policy.Engine
	Config    *config.Config
	Report    *capability.Report
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store     repository.Store
	completer llm.Completer
	ids       capability.IDGenerator
	tokens    capability.TokenEstimator
	policy    *policy.Engine
	config    *config.Config
	report    *capability.Report
	now       func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		completer: d.Completer,
		ids:       d.IDs,
		tokens:    d.Tokens,
		policy:    d.Policy,
		config:    d.Config,
		report:    d.Report,
		now:       d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = capability.TemplateGenerator{}
	}
	if s.tokens == nil {
		s.tokens = capability.CharEstimator{}
	}
	if s.report == nil {
		s.report = capability.NewReport()
	}
	if s.config == nil {
		s.config = &config.Config{}
		s.config.Validate()
	}
	return s
}

// PublicConfig returns the sanitized configuration view.
func (s *Service) PublicConfig() domain.PublicConfig {
	c := s.config.Completion
	var deployment *string
	if c.Deployment != "" {
		name := c.Deployment
		deployment = &name
	}
	return domain.PublicConfig{
		CompletionEndpointConfigured: c.Endpoint != "",
		CompletionDeploymentName:     deployment,
		APIVersion:                   c.APIVersion,
		HasAPIKey:                    c.APIKey != "",
		AuthEnabled:                  s.config.Auth.Enabled,
		PersistenceEnabled:           s.report.IsReal(capability.SQL),
		Environment:                  s.config.Environment,
		Capabilities:                 s.report.Modes(),
	}
}

// Health reports liveness and the capability modes.
func (s *Service) Health() domain.Health {
	return domain.Health{
		Status:       "ok",
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		Capabilities: s.report.Modes(),
	}
}

// authorize applies the access policy for category.
func (s *Service) authorize(ctx context.Context, p domain.Principal, category string) error {
	if s.policy == nil {
		return nil
	}
	d, err := s.policy.Evaluate(ctx, policy.Input{
		AuthEnabled:   s.config.Auth.Enabled,
		Authenticated: p.Authenticated,
		Roles:         p.Roles,
		Category:      category,
		RequiredRoles: s.config.Auth.CategoryRoles[category],
	})
	if err != nil {
		return apperr.Internal("failed to evaluate access policy", err)
	}
	if !d.Allow {
		logger.L.Warn("access denied", "principal", p.ID, "category", category, "reason", d.Reason)
		reason := d.Reason
		if reason == "" {
			reason = "access denied"
		}
		return apperr.Forbidden(reason)
	}
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
