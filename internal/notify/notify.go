// Package notify pushes run summaries to external channels (ServerChan,
// WeCom group robot, SMTP email). Channels fail independently: one dead
// webhook never blocks the others.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/metrics"
)

// Message is one push payload. Text is the plain body used by the
// webhook channels; HTML, when set, is preferred by channels that can
// render it (email).
type Message struct {
	Title string
	Text  string
	HTML  string
}

// Notifier delivers a message over one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher fans a message out to every configured channel.
type Dispatcher struct {
	notifiers []Notifier
	rec       *metrics.Recorder
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given channels. rec may be
// nil.
func NewDispatcher(notifiers []Notifier, rec *metrics.Recorder, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, rec: rec, log: log}
}

// Enabled reports whether any channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.notifiers) > 0
}

// Dispatch sends msg to every channel, collecting per-channel errors.
// A non-nil error means at least one channel failed; the others were
// still attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if !d.Enabled() {
		return nil
	}

	var errs []error
	for _, n := range d.notifiers {
		err := n.Send(ctx, msg)
		d.rec.RecordNotification(n.Name(), metrics.Status(err))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			d.log.Warn().Err(err).Str("channel", n.Name()).Msg("push failed")
			continue
		}
		d.log.Info().Str("channel", n.Name()).Str("title", msg.Title).Msg("push sent")
	}
	return errors.Join(errs...)
}
