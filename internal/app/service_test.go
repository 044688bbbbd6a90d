package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type failingService struct{ err error }

func (s failingService) Name() string                { return "failing" }
func (s failingService) Start(context.Context) error { return s.err }
func (s failingService) Stop(context.Context) error  { return nil }

func TestRunnerStopsAllServicesWhenOneExits(t *testing.T) {
	var stopped int32
	lifecycle := NewLifecycleService("container", func(context.Context) error {
		atomic.AddInt32(&stopped, 1)
		return nil
	})
	boom := errors.New("listen failed")
	runner := NewRunner(failingService{err: boom}, lifecycle)

	err := runner.Run(context.Background(), time.Second, zap.NewNop().Sugar())
	if !errors.Is(err, boom) {
		t.Fatalf("expected listen error, got %v", err)
	}
	if atomic.LoadInt32(&stopped) != 1 {
		t.Fatalf("lifecycle stop should run once, got %d", stopped)
	}
}

func TestRunnerTreatsCancellationAsCleanExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lifecycle := NewLifecycleService("telemetry", nil)
	runner := NewRunner(lifecycle)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, time.Second, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled runner should exit cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not exit after cancel")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error for empty runner")
	}
}

func TestRunnerStopsInReverseOrder(t *testing.T) {
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	boom := errors.New("stop")
	runner := NewRunner(
		failingService{err: boom},
		NewLifecycleService("container", record("container")),
		NewLifecycleService("telemetry", record("telemetry")),
	)
	if err := runner.Run(context.Background(), time.Second, nil); !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "telemetry" || order[1] != "container" {
		t.Fatalf("unexpected stop order: %v", order)
	}
}

func TestRunnerReportsStopFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	flushErr := errors.New("flush failed")
	runner := NewRunner(nil, NewLifecycleService("telemetry", func(context.Context) error { return flushErr }))

	err := runner.Run(ctx, time.Second, nil)
	if !errors.Is(err, flushErr) {
		t.Fatalf("expected stop error to surface, got %v", err)
	}
}
