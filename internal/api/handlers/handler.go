package handlers

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/core"
	"github.com/edustack/edustack/internal/metrics"
	"github.com/edustack/edustack/internal/provision"
)

type ClientStore interface {
	Get(id string) (*core.Client, error)
	GetByDomain(domain string) (*core.Client, error)
	List(name, status string) ([]*core.Client, error)
	UpdateDetails(id, name, desc string) (*core.Client, error)
	UpdateLicense(id string, licenseDate time.Time, status core.ClientStatus) (*core.Client, error)
	AppendNote(id, note string) (*core.Client, error)
	Ping() error
}

type Provisioner interface {
	AddTenant(ctx context.Context, p provision.Payload) (*provision.Result, error)
}

// ResolveCache is satisfied by the redis client; a nil cache disables the
// read-through path.
type ResolveCache interface {
	GetResolvedTenant(ctx context.Context, domain string, dest interface{}) error
	CacheResolvedTenant(ctx context.Context, domain string, cfg interface{}, ttl time.Duration) error
	InvalidateResolvedTenant(ctx context.Context, domain string) error
}

// LogoStore persists uploaded logo binaries and returns the id recorded on
// the tenant record. A nil store leaves the record without a logo id.
type LogoStore interface {
	SaveLogo(ctx context.Context, filename string, content io.Reader) (string, error)
}

type Handler struct {
	store       ClientStore
	provisioner Provisioner
	cache       ResolveCache
	logos       LogoStore
	cacheTTL    time.Duration
	metrics     *metrics.Collector
	logger      *zap.Logger
	now         func() time.Time
}

func NewHandler(store ClientStore, provisioner Provisioner, cache ResolveCache, logos LogoStore, cacheTTL time.Duration, collector *metrics.Collector, logger *zap.Logger) *Handler {
	return &Handler{
		store:       store,
		provisioner: provisioner,
		cache:       cache,
		logos:       logos,
		cacheTTL:    cacheTTL,
		metrics:     collector,
		logger:      logger,
		now:         time.Now,
	}
}
