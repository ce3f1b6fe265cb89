// ABOUTME: Report generator wrapping the completion boundary
// ABOUTME: Returns ok=false on any failure so callers skip dispatch
package brief

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/llm"
)

type Generator struct {
	completer llm.Completer
	timeout   time.Duration
	logger    *log.Logger
}

// NewGenerator wraps completer. A zero timeout leaves the deadline to ctx.
func NewGenerator(completer llm.Completer, timeout time.Duration, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{completer: completer, timeout: timeout, logger: logger}
}

// Generate produces the raw two-section briefing text for payload.
func (g *Generator) Generate(ctx context.Context, payload *analytics.Payload) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("report generation panicked", "panic", fmt.Sprint(r))
			text, ok = "", false
		}
	}()

	if payload == nil {
		g.logger.Error("empty payload provided to report generator")
		return "", false
	}
	if g.completer == nil {
		g.logger.Error("no completion backend configured")
		return "", false
	}

	data, err := payload.JSON()
	if err != nil {
		g.logger.Error("failed to encode payload", "err", err)
		return "", false
	}
	if err := ValidatePayload(data); err != nil {
		g.logger.Error("payload rejected", "err", err)
		return "", false
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	g.logger.Info("invoking completion backend", "report_date", payload.ReportDate)
	out, err := g.completer.Complete(ctx, BuildPrompt(data))
	if err != nil {
		g.logger.Error("completion failed", "err", err, "elapsed", time.Since(started).Round(time.Millisecond))
		return "", false
	}
	if strings.TrimSpace(out) == "" {
		g.logger.Error("completion returned empty text")
		return "", false
	}

	g.logger.Info("briefing generated", "chars", len([]rune(out)), "elapsed", time.Since(started).Round(time.Millisecond))
	return out, true
}
