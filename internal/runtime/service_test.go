package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
)

func TestTryNewServiceNilConfig(t *testing.T) {
	_, err := TryNewService(nil, newTestLogger(), context.Background(), ServiceDependencies{DisableMetrics: true})
	if !errors.Is(err, errspkg.ErrConfigRequired) {
		t.Fatalf("expected ErrConfigRequired, got %v", err)
	}
}

func TestTryNewServiceInvalidConfig(t *testing.T) {
	conf := &configpkg.Config{
		PubSubSystem:           "channel",
		RestartInitialInterval: -time.Second,
	}
	_, err := TryNewService(conf, newTestLogger(), context.Background(), ServiceDependencies{DisableMetrics: true})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr errspkg.ConfigValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ConfigValidationError, got %T: %v", err, err)
	}
}

func TestNewServicePanicsOnInvalidConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewService(nil, newTestLogger(), context.Background(), ServiceDependencies{DisableMetrics: true})
}

func TestTryNewServiceDefaultsNilLoggerAndContext(t *testing.T) {
	svc, err := TryNewService(&configpkg.Config{}, nil, nil, ServiceDependencies{DisableMetrics: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Logger == nil {
		t.Fatal("expected a nop logger, got nil")
	}
	if svc.baseCtx == nil {
		t.Fatal("expected a background context, got nil")
	}
}

func TestSetDefaultQueue(t *testing.T) {
	svc := newTestService(&configpkg.Config{DefaultQueue: "workers"}, &stubFactory{})
	if got := svc.DefaultQueue(); got != "workers" {
		t.Fatalf("expected default queue from config, got %q", got)
	}

	svc.SetDefaultQueue("replica")
	if got := svc.DefaultQueue(); got != "replica" {
		t.Fatalf("expected %q, got %q", "replica", got)
	}

	// Clearing is allowed; later registrations subscribe without a queue
	// group.
	svc.SetDefaultQueue("")
	if got := svc.DefaultQueue(); got != "" {
		t.Fatalf("expected empty default queue, got %q", got)
	}
}

func TestDoneOnStoppedServiceIsClosed(t *testing.T) {
	svc := newTestService(nil, &stubFactory{})
	select {
	case <-svc.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel of a stopped service must be closed")
	}
	if err := svc.Err(); err != nil {
		t.Fatalf("expected nil Err on a fresh service, got %v", err)
	}
}

func TestBindingsSnapshot(t *testing.T) {
	svc := newTestService(&configpkg.Config{DefaultQueue: "q0"}, &stubFactory{})

	mustRegister(t, svc, ReplyRegistration{Subject: "orders.create", Handler: echoHandler})
	mustRegister(t, svc, ReplyRegistration{Subject: "orders.cancel", Queue: "q1", Handler: echoHandler})

	infos := svc.Bindings()
	if len(infos) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(infos))
	}
	if infos[0].Subject != "orders.create" || infos[0].Queue != "q0" {
		t.Fatalf("unexpected first binding: %+v", infos[0])
	}
	if infos[1].Subject != "orders.cancel" || infos[1].Queue != "q1" {
		t.Fatalf("unexpected second binding: %+v", infos[1])
	}
}

func TestResetFailsWhileRunning(t *testing.T) {
	svc := newTestService(nil, &stubFactory{})
	mustRegister(t, svc, ReplyRegistration{Subject: "ping", Handler: echoHandler})

	if err := svc.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer svc.Stop()

	if err := svc.Reset(); !errors.Is(err, errspkg.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	svc.Stop()
	if err := svc.Reset(); err != nil {
		t.Fatalf("reset on a stopped service failed: %v", err)
	}
	if len(svc.Bindings()) != 0 {
		t.Fatal("expected no bindings after Reset")
	}
}

func echoHandler(ctx context.Context, data any) (any, error) {
	return data, nil
}

func mustRegister(t *testing.T, svc *Service, cfg ReplyRegistration) {
	t.Helper()
	if err := RegisterReply(svc, cfg); err != nil {
		t.Fatalf("register %q failed: %v", cfg.Subject, err)
	}
}
