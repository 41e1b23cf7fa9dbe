package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/expr-lang/expr/vm"

	"corisa-backend/internal/config"
	"corisa-backend/internal/instrument"
	"corisa-backend/internal/workspace"
)

type hook struct {
	cfg       config.WebhookConfig
	condition *vm.Program
}

// Dispatcher delivers revision events to the configured endpoints in the
// background, retrying failed deliveries with exponential backoff.
type Dispatcher struct {
	hooks []hook
	wg    sync.WaitGroup
}

var _ workspace.Notifier = (*Dispatcher)(nil)

// NewDispatcher compiles every hook's condition. A bad expression is a
// configuration error.
func NewDispatcher(cfgs []config.WebhookConfig) (*Dispatcher, error) {
	d := &Dispatcher{}
	for i, c := range cfgs {
		if c.URL == "" {
			return nil, fmt.Errorf("webhook %d: url is required", i)
		}
		if c.MaxAttempts <= 0 {
			c.MaxAttempts = 3
		}
		if c.BackoffMs <= 0 {
			c.BackoffMs = 30000
		}
		prog, err := CompileCondition(c.Condition)
		if err != nil {
			return nil, fmt.Errorf("webhook %s: %w", c.URL, err)
		}
		d.hooks = append(d.hooks, hook{cfg: c, condition: prog})
	}
	return d, nil
}

// Len returns the number of configured hooks.
func (d *Dispatcher) Len() int {
	return len(d.hooks)
}

// Notify fires every matching hook in its own goroutine. It never blocks on
// delivery.
func (d *Dispatcher) Notify(ctx context.Context, ev workspace.RevisionEvent) {
	if len(d.hooks) == 0 {
		return
	}
	payload := BuildPayload(ctx, ev)
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: encode webhook payload: %v", err)
		return
	}

	// Deliveries outlive the request; keep its trace but not its cancellation.
	bg := context.WithoutCancel(ctx)
	for _, h := range d.hooks {
		fire, err := Matches(h.condition, payload)
		if err != nil {
			log.Printf("ERROR: webhook %s: %v", h.cfg.URL, err)
			continue
		}
		if !fire {
			continue
		}
		d.wg.Add(1)
		go func(h hook) {
			defer d.wg.Done()
			d.deliver(bg, h.cfg, payload, body)
		}(h)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, cfg config.WebhookConfig, payload *Payload, body []byte) {
	headers := ResolveHeaders(cfg.Headers)
	headers["X-Idempotency-Key"] = payload.IdempotencyKey

	for attempt := 1; ; attempt++ {
		result := Dispatch(ctx, cfg, headers, body)
		if result.OK() {
			if attempt > 1 {
				log.Printf("Webhook delivered: url=%s revision=%d attempt=%d", cfg.URL, payload.Revision, attempt)
			}
			return
		}
		reason := result.Error
		if reason == "" {
			reason = fmt.Sprintf("HTTP %d", result.StatusCode)
		}
		if attempt >= cfg.MaxAttempts {
			log.Printf("ERROR: webhook exhausted: url=%s revision=%d attempt=%d/%d: %s",
				cfg.URL, payload.Revision, attempt, cfg.MaxAttempts, reason)
			instrument.GetInstrumenter(ctx).EmitBusinessEvent(ctx, "webhook.failed", "schema",
				fmt.Sprint(payload.Revision), map[string]any{"url": cfg.URL, "error": reason})
			return
		}
		log.Printf("WARN: webhook %s attempt %d/%d failed: %s", cfg.URL, attempt, cfg.MaxAttempts, reason)

		// backoff_ms x 2^(attempt-1)
		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Duration(cfg.BackoffMs) * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
