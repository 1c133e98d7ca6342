// Package policy evaluates conversation access with an embedded rego module.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Input is the document the access policy sees.
type Input struct {
	AuthEnabled   bool
	Authenticated bool
	Roles         []string
	Category      string
	RequiredRoles []string
}

// Decision is the policy outcome.
type Decision struct {
	Allow  bool
	Reason string
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.rts.access"),
		rego.Module("access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the access policy. An undefined decision denies.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	doc := map[string]any{
		"auth_enabled":   in.AuthEnabled,
		"authenticated":  in.Authenticated,
		"roles":          nonNil(in.Roles),
		"category":       in.Category,
		"required_roles": nonNil(in.RequiredRoles),
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Reason: "no policy decision"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{Reason: "unexpected policy result"}, nil
	}
	allow, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return Decision{Allow: allow, Reason: reason}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// DefaultPolicy grants everything while auth is disabled. With auth enabled
// the caller must be authenticated and, for categories that list roles, hold
// at least one of them.
const DefaultPolicy = `
package rts.access

default allow := false

allow if not input.auth_enabled

allow if {
	input.authenticated
	count(input.required_roles) == 0
}

allow if {
	input.authenticated
	some role in input.roles
	role in input.required_roles
}

reason := "authentication required" if {
	input.auth_enabled
	not input.authenticated
}

reason := "missing required role" if {
	input.auth_enabled
	input.authenticated
	not allow
}
`
