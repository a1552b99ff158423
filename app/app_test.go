package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	startErr error
	stopped  atomic.Bool
}

func (s *fakeServer) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := &fakeServer{}
	var order []int
	a := New("test", discardLogger(),
		WithServer(srv),
		WithCleanup(func() { order = append(order, 1) }),
		WithCleanup(func() { order = append(order, 2) }),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !srv.stopped.Load() {
		t.Fatal("server was not stopped")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("cleanups should run in reverse order, got %v", order)
	}
}

func TestRunReturnsServerError(t *testing.T) {
	boom := errors.New("listen failed")
	a := New("test", discardLogger(), WithServer(&fakeServer{startErr: boom}))
	if err := a.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected server error, got %v", err)
	}
}
