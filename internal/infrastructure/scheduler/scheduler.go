// Package scheduler dispara la sincronización automática de las tiendas a intervalos fijos.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

// DueSyncer sincroniza las tiendas cuyo intervalo venció.
type DueSyncer interface {
	SyncDue(ctx context.Context) (map[string]*commerce.SyncResult, error)
}

// Scheduler ejecuta SyncDue en cada tick. Un tick no empieza mientras el anterior siga en curso.
type Scheduler struct {
	syncer   DueSyncer
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	running bool
}

// New construye el scheduler. interval <= 0 lo deja desactivado (Run retorna de inmediato).
func New(syncer DueSyncer, interval time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{syncer: syncer, interval: interval, log: log.WithComponent("scheduler")}
}

// Run bloquea hasta que ctx se cancela.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("sincronización automática desactivada")
		return
	}
	s.log.Info().Dur("interval", s.interval).Msg("sincronización automática iniciada")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sincronización automática detenida")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick una pasada de sincronización. Devuelve false si otra pasada seguía en curso.
func (s *Scheduler) Tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("pasada anterior en curso, tick omitido")
		return false
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	results, err := s.syncer.SyncDue(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sincronización automática")
		return true
	}
	for id, res := range results {
		ev := s.log.Info()
		if res.Err != nil {
			ev = s.log.Warn().Err(res.Err)
		}
		ev.Str("store_id", id).
			Int("synced", res.Synced).
			Int("errors", len(res.Errors)).
			Msg("tienda procesada")
	}
	return true
}
