package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
	"corisa-backend/internal/workspace"
)

func TestDecodeProposal_Plan(t *testing.T) {
	p, err := DecodeProposal([]byte(`{"operations":[{"op":"remove_entity","collection":"pages","id":"old"}]}`))
	require.NoError(t, err)
	assert.False(t, p.FromModifications)
	assert.Equal(t, modplan.Version, p.Plan.Version)
	require.Len(t, p.Plan.Operations, 1)
	assert.Equal(t, modplan.OpRemoveEntity, p.Plan.Operations[0].Op)

	p, err = DecodeProposal([]byte(`{"plan":{"version":"1.0","operations":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, p.Plan.Operations)
}

func TestDecodeProposal_Modifications(t *testing.T) {
	p, err := DecodeProposal([]byte(`{"sections":[{"title":"Recent Orders"}],"pages":[{"id":"dash","sections":["recent-orders"]}]}`))
	require.NoError(t, err)
	assert.True(t, p.FromModifications)
	require.Len(t, p.Plan.Operations, 2)
	assert.Equal(t, "recent-orders", p.Plan.Operations[0].ItemID())
}

func TestDecodeProposal_Rejects(t *testing.T) {
	_, err := DecodeProposal([]byte(`not json`))
	assert.Error(t, err)
	_, err = DecodeProposal([]byte(`{"answer":"add a page"}`))
	assert.ErrorIs(t, err, errNotAPlan)
	_, err = DecodeProposal([]byte(`{"buttons":[{}]}`))
	var be *modplan.BuildError
	assert.ErrorAs(t, err, &be)
}

func TestPlanDocument(t *testing.T) {
	doc, err := PlanDocument([]byte(`{"plan":{"operations":[{"op":"remove_entity","collection":"pages","id":"old","junk":true}]}}`))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(doc, &got))
	assert.Equal(t, modplan.Version, got["version"])
	op := got["operations"].([]any)[0].(map[string]any)
	assert.Equal(t, true, op["junk"], "operations are not re-encoded")

	doc, err = PlanDocument([]byte(`{"pages":[{"id":"dash"}]}`))
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestBuildUserPrompt(t *testing.T) {
	s := metadata.NewSchema()
	s.App.Name = "shop"
	prompt, err := BuildUserPrompt("add a dashboard", s.Summarize(), []byte("{\n  \"type\": \"object\"\n}"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "User request:\nadd a dashboard\n\n"))
	assert.Contains(t, prompt, `"app":"shop"`)
	assert.Contains(t, prompt, "JSON Schema for Mod Plan:\n{\"type\":\"object\"}")
	assert.Contains(t, BuildSystemPrompt(), "Output ONLY valid JSON")
}

func fakeProvider(t *testing.T, content string, status int) *Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": content}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return NewProvider(config.AIConfig{BaseURL: srv.URL + "/", APIKey: "test-key", Model: "test-model", Temperature: 0.2})
}

func newTestApp(t *testing.T, provider *Provider) *fiber.App {
	t.Helper()
	v, err := engine.NewValidator()
	require.NoError(t, err)
	ws := workspace.New(v, nil, engine.DefaultOptions())
	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler})
	RegisterAIRoutes(app, NewHandler(provider, ws))
	return app
}

func post(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/_admin/ai/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestPlanEndpoint(t *testing.T) {
	content := `{"version":"1.0","operations":[{"op":"upsert_entity","collection":"pages","item":{"id":"dash","sections":["kpis"]}}]}`
	app := newTestApp(t, fakeProvider(t, content, http.StatusOK))

	status, body := post(t, app, `{"prompt":"add a dashboard"}`)
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["fromModifications"])
	outcome := data["outcome"].(map[string]any)
	assert.Equal(t, true, outcome["success"])
	assert.Equal(t, []any{"kpis"}, outcome["healed"])

	status, _ = post(t, app, `{"prompt":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPlanEndpoint_Errors(t *testing.T) {
	status, body := post(t, newTestApp(t, nil), `{"prompt":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "AI_NOT_CONFIGURED", body["error"].(map[string]any)["code"])

	status, body = post(t, newTestApp(t, fakeProvider(t, `{"answer":"sure"}`, http.StatusOK)), `{"prompt":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "AI_INVALID_PLAN", body["error"].(map[string]any)["code"])

	status, body = post(t, newTestApp(t, fakeProvider(t, "", http.StatusTooManyRequests)), `{"prompt":"x"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body["error"].(map[string]any)["message"], "quota exceeded")
}

func TestPlanEndpoint_RawPlanValidatedStructurally(t *testing.T) {
	content := `{"operations":[{"op":"remove_entity","collection":"pages","id":"old","junk":true}]}`
	status, body := post(t, newTestApp(t, fakeProvider(t, content, http.StatusOK)), `{"prompt":"drop the old page"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status, body)

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "AI_INVALID_PLAN", errObj["code"])
	details := errObj["details"].([]any)
	require.NotEmpty(t, details)
	first := details[0].(map[string]any)
	assert.Equal(t, "structural", first["rule"])
	assert.Contains(t, first["message"], "junk")

	content = `{"operations":[{"op":"upsert_entity","collection":"pages","item":"dash"}]}`
	status, body = post(t, newTestApp(t, fakeProvider(t, content, http.StatusOK)), `{"prompt":"x"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status, body)
	details = body["error"].(map[string]any)["details"].([]any)
	assert.Contains(t, details[0].(map[string]any)["message"], "operations.0.item")
}

func TestStatus(t *testing.T) {
	app := newTestApp(t, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/_admin/ai/status", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"data":{"configured":false}}`, string(raw))
	assert.Nil(t, NewProvider(config.AIConfig{BaseURL: "x"}))
}

func TestProvider_RetriesGatewayErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("upstream busy"))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}],"usage":{"prompt_tokens":3}}`))
	}))
	t.Cleanup(srv.Close)

	p := NewProvider(config.AIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	out, err := p.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, int32(2), hits.Load())
}
