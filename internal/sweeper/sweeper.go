// Package sweeper periodically evicts expired dedupe entries so the
// store stays bounded under sustained traffic.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"notigate/internal/dedupe"
	"notigate/pkg/logx"
)

const DefaultEvery = 5 * time.Minute

type Service struct {
	c      *cron.Cron
	dedupe *dedupe.Store
	log    logx.Logger
}

func New(every time.Duration, ded *dedupe.Store, log logx.Logger) (*Service, error) {
	if every <= 0 {
		every = DefaultEvery
	}
	s := &Service{
		c:      cron.New(),
		dedupe: ded,
		log:    log,
	}
	if _, err := s.c.AddFunc(fmt.Sprintf("@every %s", every), s.sweep); err != nil {
		return nil, fmt.Errorf("sweeper: %w", err)
	}
	return s, nil
}

func (s *Service) sweep() {
	start := time.Now()
	removed := s.dedupe.Sweep()
	s.log.Debug("dedupe sweep done",
		logx.Int("removed", removed),
		logx.Int("remaining", s.dedupe.Len()),
		logx.Duration("took", time.Since(start)),
	)
}

func (s *Service) Start() { s.c.Start() }

// Stop waits for an in-flight sweep to finish, up to ctx's deadline.
func (s *Service) Stop(ctx context.Context) {
	done := s.c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
