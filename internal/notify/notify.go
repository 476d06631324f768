// Package notify publishes build events to NATS so other systems can react
// to documentation builds.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/roboworks/maptransformer/internal/config"
)

// BuildEvent is the payload published for each finished build.
type BuildEvent struct {
	BuildID    string        `json:"build_id"`
	Outcome    string        `json:"outcome"`
	Hosted     bool          `json:"hosted"`
	DoxygenRan bool          `json:"doxygen_ran"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
	Issues     []string      `json:"issues,omitempty"`
}

// Publisher publishes build events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS using the notify configuration.
func NewPublisher(cfg *config.NotifyConfig) (*Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notify config is required")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", cfg.URL, "subject", cfg.Subject)
	return &Publisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends a build event. Publishing is fire and forget; a flush with a
// short deadline makes sure the event left the client before returning.
func (p *Publisher) Publish(ctx context.Context, event BuildEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.FlushTimeout(time.Until(deadline)); err != nil {
		return fmt.Errorf("flush build event: %w", err)
	}

	slog.Debug("Published build event", "build_id", event.BuildID, "outcome", event.Outcome)
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
