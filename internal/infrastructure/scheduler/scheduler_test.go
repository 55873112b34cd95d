package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/scheduler"
)

type countingSyncer struct {
	calls   atomic.Int32
	block   chan struct{}
	entered chan struct{}
	err     error
}

func (c *countingSyncer) SyncDue(ctx context.Context) (map[string]*commerce.SyncResult, error) {
	c.calls.Add(1)
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return map[string]*commerce.SyncResult{
		"ok":   {StoreID: "ok", Synced: 2},
		"down": {StoreID: "down", Err: errors.New("HTTP 500")},
	}, nil
}

func TestRun_TicksHastaCancelar(t *testing.T) {
	syncer := &countingSyncer{}
	s := scheduler.New(syncer, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}

func TestRun_IntervaloCeroDesactiva(t *testing.T) {
	syncer := &countingSyncer{}
	s := scheduler.New(syncer, 0, nil)

	s.Run(context.Background())
	assert.Zero(t, syncer.calls.Load())
}

func TestTick_NoSolapaPasadas(t *testing.T) {
	syncer := &countingSyncer{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := scheduler.New(syncer, time.Hour, nil)

	first := make(chan bool)
	go func() { first <- s.Tick(context.Background()) }()
	<-syncer.entered

	assert.False(t, s.Tick(context.Background()), "la segunda pasada se omite")
	close(syncer.block)
	assert.True(t, <-first)
	assert.Equal(t, int32(1), syncer.calls.Load())
}

func TestTick_ErrorGlobalNoPanic(t *testing.T) {
	s := scheduler.New(&countingSyncer{err: errors.New("db caída")}, time.Hour, nil)
	assert.True(t, s.Tick(context.Background()))
}
