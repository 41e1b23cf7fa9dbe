// Package webhook notifies external endpoints about installed schema revisions.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"corisa-backend/internal/config"
	"corisa-backend/internal/instrument"
	"corisa-backend/internal/workspace"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Payload is the JSON body sent to webhook endpoints.
type Payload struct {
	Event          string   `json:"event"`
	Revision       int      `json:"revision"`
	Source         string   `json:"source"`
	Applied        int      `json:"applied"`
	Warnings       []string `json:"warnings"`
	Healed         []string `json:"healed"`
	User           string   `json:"user,omitempty"`
	Timestamp      string   `json:"timestamp"`
	IdempotencyKey string   `json:"idempotency_key"`
}

// BuildPayload constructs the payload for a revision event.
func BuildPayload(ctx context.Context, ev workspace.RevisionEvent) *Payload {
	p := &Payload{
		Event:          ev.Event,
		Revision:       ev.Revision,
		Source:         ev.Source,
		Warnings:       []string{},
		Healed:         []string{},
		User:           instrument.GetUserID(ctx),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		IdempotencyKey: "wh_" + uuid.New().String(),
	}
	if ev.Report != nil {
		p.Applied = ev.Report.Applied
		p.Warnings = append(p.Warnings, ev.Report.Warnings...)
	}
	p.Healed = append(p.Healed, ev.Healed...)
	return p
}

// env is what a webhook condition can see.
func (p *Payload) env() map[string]any {
	return map[string]any{
		"event":    p.Event,
		"revision": p.Revision,
		"source":   p.Source,
		"applied":  p.Applied,
		"warnings": p.Warnings,
		"healed":   p.Healed,
		"user":     p.User,
	}
}

// CompileCondition compiles a condition expression. Empty source yields nil.
func CompileCondition(src string) (*vm.Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.Env((&Payload{}).env()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile webhook condition: %w", err)
	}
	return prog, nil
}

// Matches evaluates a compiled condition. A nil program always matches.
func Matches(prog *vm.Program, p *Payload) (bool, error) {
	if prog == nil {
		return true, nil
	}
	out, err := expr.Run(prog, p.env())
	if err != nil {
		return false, fmt.Errorf("evaluate webhook condition: %w", err)
	}
	matched, _ := out.(bool)
	return matched, nil
}

var envRef = regexp.MustCompile(`\{\{\s*env\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ResolveHeaders expands {{env.NAME}} references in header values from the
// process environment. Unset variables expand to "".
func ResolveHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		out[name] = envRef.ReplaceAllStringFunc(value, func(ref string) string {
			return os.Getenv(envRef.FindStringSubmatch(ref)[1])
		})
	}
	return out
}

// Result holds the outcome of a single HTTP call.
type Result struct {
	StatusCode   int
	ResponseBody string
	Error        string
}

// OK reports a 2xx response.
func (r *Result) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Dispatch performs one HTTP call.
func Dispatch(ctx context.Context, hook config.WebhookConfig, headers map[string]string, body []byte) *Result {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "webhook", "dispatcher", "webhook.dispatch")
	defer span.End()
	span.SetMetadata("url", hook.URL)

	method := hook.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, hook.URL, bytes.NewReader(body))
	if err != nil {
		span.SetStatus("error")
		return &Result{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		span.SetStatus("error")
		span.SetMetadata("error", err.Error())
		return &Result{Error: fmt.Sprintf("http call: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	span.SetMetadata("status_code", resp.StatusCode)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		span.SetStatus("ok")
	} else {
		span.SetStatus("error")
	}
	return &Result{StatusCode: resp.StatusCode, ResponseBody: string(respBody)}
}
