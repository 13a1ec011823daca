package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeRepo struct {
	mu     sync.Mutex
	ids    []string
	err    error
	sweeps int
	lastAt time.Time
}

func (f *fakeRepo) MarkLapsed(now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	f.lastAt = now
	return f.ids, f.err
}

func (f *fakeRepo) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestSweepMarksLapsedAtCurrentTime(t *testing.T) {
	repo := &fakeRepo{ids: []string{"c-1", "c-2"}}
	s := New(repo, time.Minute, zap.NewNop())
	fixed := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Sweep()

	assert.Equal(t, 1, repo.sweepCount())
	assert.Equal(t, fixed, repo.lastAt)
}

func TestSweepToleratesRepoErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	s := New(repo, time.Minute, zap.NewNop())

	s.Sweep()
	s.Sweep()

	assert.Equal(t, 2, repo.sweepCount())
}

func TestStartSweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	s := New(repo, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.sweepCount() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
