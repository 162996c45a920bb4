package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	configpkg "github.com/drblury/replyflow/internal/runtime/config"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	transportpkg "github.com/drblury/replyflow/internal/runtime/transport"
)

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

// recordingLogger counts error-level log calls.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return l }
func (l *recordingLogger) Debug(string, loggingpkg.LogFields)                 {}
func (l *recordingLogger) Info(string, loggingpkg.LogFields)                  {}
func (l *recordingLogger) Trace(string, loggingpkg.LogFields)                 {}

func (l *recordingLogger) Error(msg string, err error, _ loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

type stubSubscription struct {
	subject string
	queue   string
	handler transportpkg.Handler
}

// stubTransport records subscriptions and publishes, and lets tests inject
// inbound messages and run-loop failures.
type stubTransport struct {
	mu        sync.Mutex
	subs      []stubSubscription
	published map[string][][]byte
	closed    int

	subscribeErr error
	publishErr   error

	runErrs chan error
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		published: make(map[string][][]byte),
		runErrs:   make(chan error, 1),
	}
}

func (st *stubTransport) Subscribe(subject, queue string, handler transportpkg.Handler) error {
	if st.subscribeErr != nil {
		return st.subscribeErr
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs = append(st.subs, stubSubscription{subject: subject, queue: queue, handler: handler})
	return nil
}

func (st *stubTransport) Publish(address string, data []byte) error {
	if st.publishErr != nil {
		return st.publishErr
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.published[address] = append(st.published[address], data)
	return nil
}

func (st *stubTransport) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-st.runErrs:
		return err
	}
}

func (st *stubTransport) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed++
	return nil
}

// deliver invokes the handler subscribed to subject, mimicking one inbound
// message, and reports the handler's error the way a real transport would.
func (st *stubTransport) deliver(msg transportpkg.Message) error {
	st.mu.Lock()
	var handler transportpkg.Handler
	for _, sub := range st.subs {
		if sub.subject == msg.Subject {
			handler = sub.handler
			break
		}
	}
	st.mu.Unlock()

	if handler == nil {
		return nil
	}
	err := handler(msg)
	if err != nil {
		select {
		case st.runErrs <- err:
		default:
		}
	}
	return err
}

func (st *stubTransport) fail(err error) {
	select {
	case st.runErrs <- err:
	default:
	}
}

func (st *stubTransport) subscriptions() []stubSubscription {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]stubSubscription(nil), st.subs...)
}

func (st *stubTransport) publishedTo(address string) [][]byte {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([][]byte(nil), st.published[address]...)
}

type stubFactory struct {
	mu           sync.Mutex
	built        []*stubTransport
	buildErr     error
	subscribeErr error
}

func (f *stubFactory) Build(ctx context.Context, conf *configpkg.Config, logger watermill.LoggerAdapter) (transportpkg.Transport, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	tr := newStubTransport()
	tr.subscribeErr = f.subscribeErr
	f.mu.Lock()
	f.built = append(f.built, tr)
	f.mu.Unlock()
	return tr, nil
}

func (f *stubFactory) transports() []*stubTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*stubTransport(nil), f.built...)
}

func newTestService(conf *configpkg.Config, factory transportpkg.Factory) *Service {
	if conf == nil {
		conf = &configpkg.Config{}
	}
	return NewService(conf, newTestLogger(), context.Background(), ServiceDependencies{
		TransportFactory: factory,
		DisableMetrics:   true,
	})
}
