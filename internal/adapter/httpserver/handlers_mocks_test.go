package httpserver

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/pscheid92/karmapulse/internal/platform/config"
)

// --- Mock implementations ---

type mockKarmaService struct {
	handleMessageFn func(ctx context.Context, msg domain.Message) []domain.Reply
	handleCommandFn func(ctx context.Context, cmd domain.Command) ([]domain.Reply, error)
}

func (m *mockKarmaService) HandleMessage(ctx context.Context, msg domain.Message) []domain.Reply {
	if m.handleMessageFn != nil {
		return m.handleMessageFn(ctx, msg)
	}
	return nil
}

func (m *mockKarmaService) HandleCommand(ctx context.Context, cmd domain.Command) ([]domain.Reply, error) {
	if m.handleCommandFn != nil {
		return m.handleCommandFn(ctx, cmd)
	}
	return nil, domain.ErrUnknownCommand
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		HighlightChar: "}",
		BotNick:       "DaZeus",
	}
}

func newTestServer(t *testing.T, karma domain.KarmaService, opts ...func(*config.Config)) *Server {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return NewServer(cfg, karma, prometheus.NewRegistry(), nil, clockwork.NewFakeClock())
}

func withDispatchToken(token string) func(*config.Config) {
	return func(c *config.Config) {
		c.DispatchToken = token
	}
}

func withRateLimit(rate float64, burst int) func(*config.Config) {
	return func(c *config.Config) {
		c.DispatchRateLimit = rate
		c.DispatchRateBurst = burst
	}
}

func withHealthChecks(srv *Server, checks ...HealthCheck) *Server {
	srv.healthChecks = checks
	return srv
}
