package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Repo interface {
	MarkLapsed(now time.Time) ([]string, error)
}

// Sweeper keeps tenant record status consistent with the license expiry
// date: status is derived, so a lapsed school must flip to expired without
// anyone touching it.
type Sweeper struct {
	repo     Repo
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func New(repo Repo, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Sweeper) Sweep() {
	ids, err := s.repo.MarkLapsed(s.now())
	if err != nil {
		s.logger.Error("license sweep failed", zap.Error(err))
		return
	}
	if len(ids) > 0 {
		s.logger.Info("marked lapsed licenses",
			zap.Int("count", len(ids)),
			zap.Strings("client_ids", ids),
		)
	}
}
