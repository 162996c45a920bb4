package logging

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

type recordingAdapter struct {
	lastMsg    string
	lastErr    error
	lastFields watermill.LogFields
	withFields watermill.LogFields
}

func (r *recordingAdapter) Error(msg string, err error, fields watermill.LogFields) {
	r.lastMsg, r.lastErr, r.lastFields = msg, err, fields
}

func (r *recordingAdapter) Info(msg string, fields watermill.LogFields) {
	r.lastMsg, r.lastFields = msg, fields
}

func (r *recordingAdapter) Debug(msg string, fields watermill.LogFields) {
	r.lastMsg, r.lastFields = msg, fields
}

func (r *recordingAdapter) Trace(msg string, fields watermill.LogFields) {
	r.lastMsg, r.lastFields = msg, fields
}

func (r *recordingAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	r.withFields = fields
	return r
}

func TestWatermillServiceLoggerForwards(t *testing.T) {
	rec := &recordingAdapter{}
	logger := NewWatermillServiceLogger(rec)

	logger.Info("hello", LogFields{"subject": "ping"})
	if rec.lastMsg != "hello" {
		t.Fatalf("expected message to be forwarded, got %q", rec.lastMsg)
	}
	if rec.lastFields["subject"] != "ping" {
		t.Fatalf("expected fields to be forwarded, got %v", rec.lastFields)
	}

	wantErr := errors.New("boom")
	logger.Error("failed", wantErr, nil)
	if rec.lastErr != wantErr {
		t.Fatalf("expected error to be forwarded, got %v", rec.lastErr)
	}

	logger.With(LogFields{"component": "dispatch"}).Debug("dbg", nil)
	if rec.withFields["component"] != "dispatch" {
		t.Fatalf("expected With fields to be forwarded, got %v", rec.withFields)
	}
}

func TestNewWatermillAdapterRoundTrip(t *testing.T) {
	rec := &recordingAdapter{}
	adapter := NewWatermillAdapter(NewWatermillServiceLogger(rec))

	adapter.Info("from watermill", watermill.LogFields{"k": "v"})
	if rec.lastMsg != "from watermill" {
		t.Fatalf("expected message to round-trip, got %q", rec.lastMsg)
	}
	if rec.lastFields["k"] != "v" {
		t.Fatalf("expected fields to round-trip, got %v", rec.lastFields)
	}
}

func TestNewSlogServiceLogger(t *testing.T) {
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	logger.Info("ok", LogFields{"n": 1})
	logger.Debug("ok", nil)
	logger.Error("ok", errors.New("x"), nil)
	logger.Trace("ok", nil)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil slog logger")
		}
	}()
	NewSlogServiceLogger(nil)
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("discarded", LogFields{"a": 1})
	logger.Error("discarded", errors.New("x"), nil)
	if logger.With(LogFields{"b": 2}) == nil {
		t.Fatal("With should return a usable logger")
	}
}
