package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	transportpkg "github.com/drblury/replyflow/internal/runtime/transport"
)

// ServiceDependencies holds the optional collaborators that the Service can
// use. Leave fields nil to use the built-in defaults.
type ServiceDependencies struct {
	TransportFactory transportpkg.Factory
	// MetricsRegisterer receives the dispatch collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer
	// DisableMetrics skips collector registration entirely.
	DisableMetrics bool
}

// Service owns the reply registry and the lifecycle of the dispatch loop.
// Register replies on a stopped Service, then call Start; the loop runs on a
// supervised background goroutine until Stop.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	baseCtx          context.Context
	transportFactory transportpkg.Factory
	tracer           trace.Tracer
	metrics          *dispatchMetrics
	metricsOnce      sync.Once
	policy           restartPolicy

	mu           sync.Mutex
	bindings     []*ReplyBinding
	defaultQueue string
	running      bool
	// gen identifies one lifecycle epoch; it advances on every stop so a
	// superseded supervisor can tell it no longer owns the service.
	gen          uint64
	transport    transportpkg.Transport
	loopCancel   context.CancelFunc
	done         chan struct{}
	lastErr      error
	restartState restartState
}

// NewService constructs a Service for the supplied configuration, panicking
// on invalid input. Register replies on the returned Service before calling
// Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService is NewService with an error return instead of a panic.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}
	if log == nil {
		log = loggingpkg.NopLogger()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}

	log.Info("Creating reply service",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"config":        conf,
		})

	s := &Service{
		Conf:             conf,
		Logger:           log,
		baseCtx:          ctx,
		transportFactory: factory,
		tracer:           otel.Tracer("replyflow"),
		defaultQueue:     conf.DefaultQueue,
		policy: restartPolicy{
			InitialInterval: conf.RestartInitialInterval,
			MaxInterval:     conf.RestartMaxInterval,
			MaxRestarts:     conf.RestartMaxRestarts,
			ResetInterval:   conf.RestartResetInterval,
		}.withDefaults(),
	}
	s.restartState = newRestartState(s.policy)

	if !deps.DisableMetrics {
		registerer := deps.MetricsRegisterer
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		s.metrics = newDispatchMetrics(registerer)
	}

	return s, nil
}

// SetLogger replaces the service logger. A nil logger silences logging.
func (s *Service) SetLogger(log loggingpkg.ServiceLogger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log == nil {
		log = loggingpkg.NopLogger()
	}
	s.Logger = log
}

// SetDefaultQueue sets the queue group applied to registrations that do not
// name one. An empty value clears the default.
func (s *Service) SetDefaultQueue(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultQueue = name
}

// DefaultQueue returns the current default queue group, or "" when none is
// set.
func (s *Service) DefaultQueue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultQueue
}

// IsRunning reports whether the dispatch loop is live.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Err returns the most recent dispatch failure, nil after a clean Stop.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Done returns a channel that closes when the dispatch lifecycle ends: after
// Stop, or after the supervisor exhausts its restart budget. A stopped
// service returns an already-closed channel. Combine with Err to observe
// crash loops from an embedding process supervisor.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Bindings returns a snapshot of the registered bindings in registration
// order.
func (s *Service) Bindings() []BindingInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]BindingInfo, len(s.bindings))
	for i, binding := range s.bindings {
		infos[i] = BindingInfo{
			Subject: binding.Subject,
			Queue:   binding.Queue,
			Stats:   binding.Stats,
		}
	}
	return infos
}

// Reset discards every registered binding. Fails while the service is
// running. Intended for tests.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errspkg.ErrAlreadyRunning
	}
	s.bindings = nil
	return nil
}

func (s *Service) startMetricsServer() {
	if s.metrics == nil || !s.Conf.MetricsEnabled || s.Conf.MetricsPort <= 0 {
		return
	}
	s.metricsOnce.Do(func() {
		addr := fmt.Sprintf(":%d", s.Conf.MetricsPort)
		s.Logger.Info("Starting metrics server", loggingpkg.LogFields{"address": addr})
		go func() {
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				s.Logger.Error("Failed to start metrics server", err, loggingpkg.LogFields{"address": addr})
			}
		}()
	})
}

// restartPolicy tunes the supervisor. Zero values fall back to library
// defaults; MaxRestarts < 0 removes the cap.
type restartPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRestarts     int
	ResetInterval   time.Duration
}

func (p restartPolicy) withDefaults() restartPolicy {
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 16 * time.Second
	}
	if p.MaxRestarts == 0 {
		p.MaxRestarts = 5
	}
	if p.ResetInterval <= 0 {
		p.ResetInterval = time.Minute
	}
	return p
}
