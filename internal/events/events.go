// Package events publishes run progress as one JSON envelope per stage transition.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is the envelope written to every sink.
type Event struct {
	EventID    string          `json:"event_id"`
	RunID      string          `json:"run_id"`
	Topic      string          `json:"topic"`
	Stage      string          `json:"stage"`
	Status     Status          `json:"status"`
	OccurredAt time.Time       `json:"occurred_at"`
	Kind       string          `json:"kind,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Validate fills defaults and checks the mandatory fields.
func (e *Event) Validate() error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if e.Stage == "" {
		return fmt.Errorf("stage is required")
	}
	switch e.Status {
	case StatusStarted, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("unknown status %q", e.Status)
	}
	return nil
}

func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return e, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, e.Validate()
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes one line per event.
type LogPublisher struct {
	Logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.New(log.Writer(), "[EVENTS] ", log.LstdFlags)
	}
	return &LogPublisher{Logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Status == StatusFailed {
		p.Logger.Printf("run=%s stage=%s status=%s kind=%s: %s", e.RunID, e.Stage, e.Status, e.Kind, e.Message)
		return nil
	}
	p.Logger.Printf("run=%s stage=%s status=%s %s", e.RunID, e.Stage, e.Status, e.Message)
	return nil
}

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
