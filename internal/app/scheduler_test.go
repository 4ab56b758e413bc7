package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRunner) Run(_ context.Context, _ string) (*models.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &models.Run{ID: "run"}, r.err
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func discardLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestScheduler_Run(t *testing.T) {
	t.Run("runs once on startup without a schedule", func(t *testing.T) {
		runner := &countingRunner{}
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			NewScheduler(runner, 0, true, discardLogger()).Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return runner.Calls() == 1 }, time.Second, 5*time.Millisecond)
		cancel()
		<-done
		assert.Equal(t, 1, runner.Calls())
	})

	t.Run("runs on every tick", func(t *testing.T) {
		runner := &countingRunner{err: pipeline.ErrRunInProgress}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go NewScheduler(runner, 5*time.Millisecond, false, discardLogger()).Run(ctx)

		assert.Eventually(t, func() bool { return runner.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	})

	t.Run("does nothing when disabled", func(t *testing.T) {
		runner := &countingRunner{}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		NewScheduler(runner, 0, false, discardLogger()).Run(ctx)
		assert.Zero(t, runner.Calls())
	})
}
