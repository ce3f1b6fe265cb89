// ABOUTME: Dispatcher that saves the dashboard report and sends the channel report
// ABOUTME: The two sub-steps are independent; neither failure blocks the other
package brief

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/notify"
)

// BriefingStore persists the dashboard report keyed by report date.
type BriefingStore interface {
	SaveBriefing(ctx context.Context, date, content string) error
}

type DispatcherOptions struct {
	SaveTimeout time.Duration
	SendTimeout time.Duration
	Logger      *log.Logger
}

type Dispatcher struct {
	store  BriefingStore
	sender notify.Sender
	opts   DispatcherOptions
	logger *log.Logger
}

func NewDispatcher(store BriefingStore, sender notify.Sender, opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{store: store, sender: sender, opts: opts, logger: logger}
}

// Outcome reports each dispatch sub-step separately.
type Outcome struct {
	Saved      bool
	SaveErr    error
	Sent       bool
	MessageSID string
	SendErr    error
	Stage      Stage
}

// Err joins the sub-step errors, nil when both succeeded.
func (o Outcome) Err() error {
	return errors.Join(o.SaveErr, o.SendErr)
}

// Dispatch saves report.Dashboard under date and sends report.Channel once.
func (d *Dispatcher) Dispatch(ctx context.Context, date string, report Report) Outcome {
	out := Outcome{Stage: report.Stage}

	if d.store == nil {
		out.SaveErr = errors.New("no briefing store configured")
	} else {
		saveCtx, cancel := withTimeout(ctx, d.opts.SaveTimeout)
		out.SaveErr = d.store.SaveBriefing(saveCtx, date, report.Dashboard)
		cancel()
	}
	if out.SaveErr != nil {
		d.logger.Error("failed to save dashboard briefing", "date", date, "err", out.SaveErr)
	} else {
		out.Saved = true
		d.logger.Info("dashboard briefing saved", "date", date, "chars", len([]rune(report.Dashboard)))
	}

	if d.sender == nil {
		out.SendErr = errors.New("no message sender configured")
	} else {
		sendCtx, cancel := withTimeout(ctx, d.opts.SendTimeout)
		out.MessageSID, out.SendErr = d.sender.Send(sendCtx, report.Channel)
		cancel()
	}
	if out.SendErr != nil {
		d.logger.Error("failed to send channel briefing", "err", out.SendErr)
	} else {
		out.Sent = true
		d.logger.Info("channel briefing sent", "sid", out.MessageSID, "stage", report.Stage)
	}

	if out.Saved || out.Sent {
		out.Stage = StageDispatched
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
