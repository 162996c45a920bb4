package runtime

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/replyflow/internal/runtime/codec"
	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
	transportpkg "github.com/drblury/replyflow/internal/runtime/transport"
)

// dispatchFunc builds the per-message callback for one binding. Every error
// it returns aborts the transport's run loop and surfaces to the supervisor;
// there is no per-message tolerance for malformed input or failing handlers.
func (s *Service) dispatchFunc(binding *ReplyBinding, tr transportpkg.Transport) transportpkg.Handler {
	logger := s.Logger.With(loggingpkg.LogFields{"subject": binding.Subject})

	return func(msg transportpkg.Message) error {
		start := time.Now()
		err := s.dispatch(logger, binding, tr, msg)
		duration := time.Since(start)

		binding.Stats.onMessageFinish(duration, err)
		if s.metrics != nil {
			s.metrics.observe(binding.Subject, duration, err)
		}
		return err
	}
}

func (s *Service) dispatch(logger loggingpkg.ServiceLogger, binding *ReplyBinding, tr transportpkg.Transport, msg transportpkg.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errspkg.NewHandlerError(binding.Subject, fmt.Errorf("handler panic: %v", r))
		}
	}()

	env, err := codec.DecodeEnvelope(msg.Data)
	if err != nil {
		return err
	}

	logger.Info("Dispatching request", loggingpkg.LogFields{
		"id":      env.ID,
		"pattern": env.Pattern,
		"reply":   msg.Reply,
		"data":    env.Data,
	})

	ctx, span := s.tracer.Start(s.baseCtx, "replyflow.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", binding.Subject),
			attribute.String("messaging.message.id", env.ID),
		))
	defer span.End()

	out, err := binding.Handler(ctx, env.Data)
	if err != nil {
		span.RecordError(err)
		return errspkg.NewHandlerError(binding.Subject, err)
	}

	payload, err := codec.EncodeEnvelope(codec.Envelope{
		ID:      env.ID,
		Pattern: env.Pattern,
		Data:    out,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if msg.Reply != "" {
		if err := tr.Publish(msg.Reply, payload); err != nil {
			span.RecordError(err)
			return errspkg.NewTransportError(err)
		}
	}

	logger.Info("Request handled", loggingpkg.LogFields{"id": env.ID})
	return nil
}
