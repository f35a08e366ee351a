package notify

import (
	"context"
	"errors"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/report"
)

// Logger is the subset of logging.Logger the notifier uses.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Request describes one report to deliver.
type Request struct {
	Report report.Report
	Kind   string

	// Destination overrides the notifier's default when non-empty.
	Destination Destination

	RangeStart time.Time
	RangeEnd   time.Time
}

// Notifier sends reports and records every attempt.
type Notifier struct {
	sender Sender
	repo   DeliveryRepository
	dest   Destination
	logger Logger
	now    func() time.Time
}

// NewNotifier creates a Notifier. sender may be nil when no webhook is
// configured; Deliver then fails with ErrNotConfigured. repo may be nil to
// skip history.
func NewNotifier(sender Sender, repo DeliveryRepository, dest Destination, logger Logger) *Notifier {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Notifier{sender: sender, repo: repo, dest: dest, logger: logger, now: time.Now}
}

// Configured reports whether a sender is set.
func (n *Notifier) Configured() bool {
	return n.sender != nil
}

// DefaultDestination returns the configured destination.
func (n *Notifier) DefaultDestination() Destination {
	return n.dest
}

// Deliver sends req once and records the outcome.
//
// The returned Delivery is non-nil whenever a send was attempted, even
// when the send failed. History write failures are logged, not returned.
func (n *Notifier) Deliver(ctx context.Context, req Request) (*Delivery, error) {
	if n.sender == nil {
		return nil, ErrNotConfigured
	}

	dest := req.Destination
	if dest.Target() == "" {
		dest = n.dest
	}
	if req.Kind == "" {
		req.Kind = KindManual
	}

	msg := Message{Text: req.Report.Text, Channel: dest.Target(), Blocks: req.Report.Blocks}
	sendErr := n.sender.Send(ctx, msg)

	d := &Delivery{
		Kind:        req.Kind,
		Destination: msg.Channel,
		RangeStart:  req.RangeStart,
		RangeEnd:    req.RangeEnd,
		SentAt:      n.now().UTC(),
		Status:      StatusSent,
		Text:        req.Report.Text,
	}
	if sendErr != nil {
		d.Status = StatusFailed
		d.Error = sendErr.Error()
		var de *DeliveryError
		if errors.As(sendErr, &de) {
			d.HTTPStatus = de.StatusCode
		}
		n.logger.Error("report delivery failed", "kind", d.Kind, "destination", d.Destination, "error", sendErr)
	} else {
		n.logger.Info("report delivered", "kind", d.Kind, "destination", d.Destination)
	}

	if n.repo != nil {
		if err := n.repo.Create(ctx, d); err != nil {
			n.logger.Error("recording report delivery", "error", err)
		}
	}

	return d, sendErr
}

// History returns recent deliveries, newest first.
func (n *Notifier) History(ctx context.Context, limit int) ([]Delivery, error) {
	if n.repo == nil {
		return []Delivery{}, nil
	}
	return n.repo.List(ctx, limit)
}
