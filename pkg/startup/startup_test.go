package startup

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type recorder struct {
	events []string
}

func (r *recorder) dependency(name string, requires ...string) *Dependency {
	return &Dependency{
		Name:     name,
		Requires: requires,
		StartFunc: func(context.Context) error {
			r.events = append(r.events, "start "+name)
			return nil
		},
		StopFunc: func(context.Context) error {
			r.events = append(r.events, "stop "+name)
			return nil
		},
	}
}

func TestStartup_StartsInDependencyOrder(t *testing.T) {
	rec := &recorder{}
	s := NewStartup(testLogger(), 1)
	s.AddDependency(rec.dependency("kafka", "postgres"))
	s.AddDependency(rec.dependency("postgres"))
	s.AddDependency(rec.dependency("redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start postgres", "start kafka", "start redis"}, rec.events)
	assert.Equal(t, StartupStatusStarted, s.Status("kafka"))

	rec.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop redis", "stop kafka", "stop postgres"}, rec.events)
	assert.Equal(t, StartupStatusStopped, s.Status("postgres"))
}

func TestStartup_RetriesWithBackoff(t *testing.T) {
	attempts := 0
	s := NewStartup(testLogger(), 3).WithBackoffUnit(time.Millisecond)
	s.AddDependency(&Dependency{
		Name: "postgres",
		StartFunc: func(context.Context) error {
			attempts++
			if attempts < 3 {
				return stderrors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2).WithBackoffUnit(time.Millisecond)
	s.AddDependency(&Dependency{
		Name:      "postgres",
		StartFunc: func(context.Context) error { return stderrors.New("connection refused") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StartupStatusFailed, s.Status("postgres"))
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Dependency{Name: "kafka", Requires: []string{"zookeeper"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zookeeper")
}

func TestStartup_Cycle(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Dependency{Name: "a", Requires: []string{"b"}})
	s.AddDependency(&Dependency{Name: "b", Requires: []string{"a"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestStartup_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStartup(testLogger(), 5).WithBackoffUnit(time.Hour)
	s.AddDependency(&Dependency{
		Name: "postgres",
		StartFunc: func(context.Context) error {
			cancel()
			return stderrors.New("connection refused")
		},
	})

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
