package service

import (
	"context"
	"testing"
	"time"

	"github.com/rr-brian/rts-ai/internal/capability"
	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/policy"
	"github.com/rr-brian/rts-ai/internal/repository"
	"github.com/rr-brian/rts-ai/tests/helpers"
)

type testEnv struct {
	svc       *Service
	store     *repository.SQLStore
	completer *helpers.StubCompleter
	clock     *helpers.Clock
	cfg       *config.Config
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		Environment: config.EnvDevelopment,
		Completion: config.CompletionConfig{
			Endpoint:   "https://example.openai.azure.com",
			APIKey:     "super-secret-key",
			Deployment: "gpt-4o",
		},
		Auth: config.AuthConfig{
			CategoryRoles: map[string][]string{"brokerage": {"AI.Brokerage.Access"}},
		},
	}
	for _, m := range mutate {
		m(cfg)
	}
	cfg.Validate()

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report := capability.NewReport()
	store := helpers.NewTestSQLiteStore(t)
	capability.Resolve(report, capability.SQL, func() (bool, error) { return true, nil }, func() bool { return false })

	env := &testEnv{
		store:     store,
		completer: &helpers.StubCompleter{Body: []byte(`{"choices":[]}`)},
		clock:     helpers.NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		cfg:       cfg,
	}
	env.svc = New(Deps{
		Store:     store,
		Completer: env.completer,
		IDs:       capability.UUIDGenerator{},
		Tokens:    capability.CharEstimator{},
		Policy:    engine,
		Config:    cfg,
		Report:    report,
		Now:       env.clock.Now,
	})
	return env
}
