package runtime

import (
	"context"
	"fmt"

	errspkg "github.com/drblury/replyflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/replyflow/internal/runtime/logging"
)

// ReplyHandler processes one decoded request payload and returns the reply
// payload. Whatever the handler returns becomes the reply envelope's data.
type ReplyHandler func(ctx context.Context, data any) (any, error)

// ReplyBinding is one registered subject: its handler and the queue group
// resolved at registration time. Immutable once created.
type ReplyBinding struct {
	Subject string
	Queue   string
	Handler ReplyHandler
	Stats   *BindingStats
}

// ReplyRegistration wires an untyped reply handler to a subject. Queue is
// optional: an empty value falls back to the service default queue, and an
// empty default subscribes without queue-group semantics.
type ReplyRegistration struct {
	Subject string
	Queue   string
	Handler ReplyHandler
}

// RegisterReply attaches the provided reply handler to the service.
// Registration is only permitted while the service is stopped.
func RegisterReply(svc *Service, cfg ReplyRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return svc.registerReply(cfg)
}

func (s *Service) registerReply(cfg ReplyRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errspkg.ErrAlreadyRunning
	}
	if cfg.Subject == "" {
		return errspkg.ErrSubjectRequired
	}
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	for _, binding := range s.bindings {
		if binding.Subject == cfg.Subject {
			return fmt.Errorf("%w: %q", errspkg.ErrDuplicateSubject, cfg.Subject)
		}
	}

	queue := cfg.Queue
	if queue == "" {
		queue = s.defaultQueue
	}

	s.bindings = append(s.bindings, &ReplyBinding{
		Subject: cfg.Subject,
		Queue:   queue,
		Handler: cfg.Handler,
		Stats:   newBindingStats(cfg.Subject, queue),
	})

	s.Logger.Debug("Registered reply",
		loggingpkg.LogFields{"subject": cfg.Subject, "queue": queue})
	return nil
}
