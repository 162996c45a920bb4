package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	transportpkg "github.com/drblury/replyflow/internal/runtime/transport"
)

// restartState tracks consecutive dispatch failures for the supervisor.
type restartState struct {
	backoff     *backoff.ExponentialBackOff
	count       int
	lastFailure time.Time
}

func newRestartState(policy restartPolicy) restartState {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.Reset()
	return restartState{backoff: b}
}

// next records a failure and returns the delay before the next restart
// attempt, or ok=false when the restart budget is exhausted.
func (r *restartState) next(policy restartPolicy) (delay time.Duration, ok bool) {
	now := time.Now()
	if !r.lastFailure.IsZero() && now.Sub(r.lastFailure) > policy.ResetInterval {
		r.count = 0
		r.backoff.Reset()
	}
	r.lastFailure = now
	r.count++

	if policy.MaxRestarts >= 0 && r.count > policy.MaxRestarts {
		return 0, false
	}
	return r.backoff.NextBackOff(), true
}

// Start transitions the service from Stopped to Running: it builds a fresh
// transport, subscribes every registered binding, and launches the blocking
// run loop on a supervised goroutine. Starting a running service is a logged
// no-op, never an error, so supervisory retries stay idempotent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Service) startLocked() error {
	if s.running {
		s.Logger.Info("Start ignored, service already running",
			loggingpkg.LogFields{"bindings": len(s.bindings)})
		return nil
	}

	tr, err := s.transportFactory.Build(s.baseCtx, s.Conf, loggingpkg.NewWatermillAdapter(s.Logger))
	if err != nil {
		return errspkg.NewTransportError(err)
	}

	for _, binding := range s.bindings {
		if err := tr.Subscribe(binding.Subject, binding.Queue, s.dispatchFunc(binding, tr)); err != nil {
			// Fail fast; nothing may stay half-subscribed.
			_ = tr.Close()
			return errspkg.NewTransportError(err)
		}
		s.Logger.Info("Listening for requests",
			loggingpkg.LogFields{"subject": binding.Subject, "queue": binding.Queue})
	}

	loopCtx, cancel := context.WithCancel(s.baseCtx)
	s.transport = tr
	s.loopCancel = cancel
	s.running = true
	if s.done == nil {
		s.done = make(chan struct{})
	}
	s.startMetricsServer()

	go s.supervise(loopCtx, tr, s.gen)

	s.Logger.Info("Reply service started", loggingpkg.LogFields{"bindings": len(s.bindings)})
	return nil
}

// Stop transitions the service to Stopped. It is idempotent and never fails:
// transport teardown errors are swallowed because shutdown must always
// succeed from the caller's point of view. Registered bindings survive.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.Logger.Debug("Stop ignored, service already stopped", nil)
		// A supervisor may be waiting out a restart delay; advancing the
		// epoch tells it the caller wants the service down.
		s.gen++
		s.finishLocked(s.lastErr)
		return
	}

	s.stopLocked()
	s.finishLocked(nil)
	s.Logger.Info("Reply service stopped", nil)
}

// Restart is Stop followed immediately by Start under one lock acquisition,
// so no caller can observe the intermediate state. Bindings are untouched;
// the new loop resubscribes the same set on a fresh transport.
func (s *Service) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Logger.Info("Restarting reply service", nil)
	if s.running {
		s.stopLocked()
	} else {
		s.gen++
	}
	return s.startLocked()
}

func (s *Service) stopLocked() {
	s.gen++
	s.running = false
	if s.loopCancel != nil {
		s.loopCancel()
		s.loopCancel = nil
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.Logger.Debug("Transport teardown failed", loggingpkg.LogFields{"error": err.Error()})
		}
		s.transport = nil
	}
}

// finishLocked ends the current lifecycle: records err and releases anyone
// waiting on Done.
func (s *Service) finishLocked(err error) {
	s.lastErr = err
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// supervise runs the blocking transport loop and owns crash recovery: on an
// unhandled dispatch failure it logs the error, tears the lifecycle down,
// and restarts it with exponential backoff until the restart budget runs
// out. A clean cancellation (Stop or Restart) ends the goroutine silently.
func (s *Service) supervise(ctx context.Context, tr transportpkg.Transport, gen uint64) {
	err := tr.Run(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		// A newer lifecycle superseded this loop; a teardown racing the run
		// loop (a closing connection beating the context) is not a failure.
		s.mu.Unlock()
		return
	}

	s.Logger.Error("Dispatch loop failed", err,
		loggingpkg.LogFields{"error_type": fmt.Sprintf("%T", err)})
	if s.metrics != nil {
		s.metrics.restarts.Inc()
	}

	s.stopLocked()
	genAfterStop := s.gen
	s.lastErr = err

	delay, ok := s.restartState.next(s.policy)
	if !ok {
		s.Logger.Error("Restart limit reached, dispatch stopped", err,
			loggingpkg.LogFields{"restarts": s.restartState.count - 1})
		s.finishLocked(err)
		s.mu.Unlock()
		return
	}
	attempt := s.restartState.count
	s.mu.Unlock()

	s.Logger.Info("Restarting dispatch loop",
		loggingpkg.LogFields{"attempt": attempt, "delay": delay.String()})
	time.Sleep(delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != genAfterStop || s.running {
		// Stop or Start took over while we were waiting.
		return
	}
	if startErr := s.startLocked(); startErr != nil {
		s.Logger.Error("Restart failed", startErr, nil)
		s.finishLocked(startErr)
	}
}
