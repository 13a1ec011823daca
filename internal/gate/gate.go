package gate

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/core"
	"github.com/edustack/edustack/internal/resolver"
	"github.com/edustack/edustack/internal/session"
)

// State decides what the portal renders: the licensed application shell, a
// blocking error screen, or a redirect to login.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateResolving        State = "resolving"
	StateLicensed         State = "licensed"
	StateLicenseExpired   State = "license_expired"
	StateResolutionFailed State = "resolution_failed"
)

type Resolver interface {
	Resolve(ctx context.Context, userEmail string) (*core.TenantConfig, error)
}

type SessionDeleter interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// User is the authenticated account as reported by the auth provider.
type User struct {
	ID        string
	Email     string
	SessionID string
	Labels    []string
}

type Gate struct {
	mu       sync.Mutex
	state    State
	resolver Resolver
	store    *session.Store
	auth     SessionDeleter
	logger   *zap.Logger
}

func New(r Resolver, store *session.Store, auth SessionDeleter, logger *zap.Logger) *Gate {
	return &Gate{
		state:    StateUnauthenticated,
		resolver: r,
		store:    store,
		auth:     auth,
		logger:   logger,
	}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// OnAuthenticated runs the resolution for a freshly authenticated user and
// settles the gate in a terminal state. A session whose status is no longer
// pending keeps its current state: there is no re-resolution inside a
// session, renewal requires logging out and back in.
func (g *Gate) OnAuthenticated(ctx context.Context, user User) State {
	if user.Email == "" {
		g.logger.Warn("authenticated user has no email, clearing session")
		g.store.ClearTenantInfo()
		return g.setState(StateUnauthenticated)
	}

	if g.store.Snapshot().LicenseStatus != core.LicensePending {
		return g.State()
	}

	g.setState(StateResolving)
	gen := g.store.Begin()

	cfg, err := g.resolver.Resolve(ctx, user.Email)
	if err != nil {
		message := "School not found or API error."
		domain := ""

		var nf *resolver.NotFoundError
		var vErr *resolver.ValidationError
		switch {
		case errors.As(err, &nf):
			message = nf.Message
			domain = nf.Domain
		case errors.As(err, &vErr):
			message = vErr.Message
		}

		g.logger.Warn("school resolution failed",
			zap.String("email", user.Email),
			zap.String("domain", domain),
			zap.Error(err),
		)
		g.store.Commit(gen, session.FromFailure(message, domain))
		return g.setState(StateResolutionFailed)
	}

	if !g.store.Commit(gen, session.FromConfig(cfg)) {
		// Superseded by a newer resolution or a logout.
		return g.State()
	}

	switch cfg.LicenseStatus {
	case core.LicenseValid:
		g.logger.Info("tenant resolved",
			zap.String("school", cfg.SchoolName),
			zap.String("domain", cfg.Domain),
			zap.String("resolved_by", cfg.ResolvedBy),
		)
		return g.setState(StateLicensed)
	case core.LicenseExpired:
		return g.setState(StateLicenseExpired)
	default:
		return g.setState(StateResolutionFailed)
	}
}

// Logout is the only recovery action from the error states. It deletes the
// auth-provider session, clears the tenant session, and returns the gate to
// unauthenticated from any state.
func (g *Gate) Logout(ctx context.Context, user User) State {
	if g.auth != nil && user.SessionID != "" {
		if err := g.auth.DeleteSession(ctx, user.SessionID); err != nil {
			g.logger.Error("failed to delete auth session", zap.Error(err))
		}
	}
	g.store.ClearTenantInfo()
	return g.setState(StateUnauthenticated)
}

func (g *Gate) setState(s State) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
	return s
}
