package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/workspace"
)

func newTestApp(t *testing.T) (*fiber.App, *workspace.Workspace) {
	t.Helper()
	v, err := engine.NewValidator()
	require.NoError(t, err)
	ws := workspace.New(v, nil, engine.DefaultOptions())
	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler})
	RegisterAdminRoutes(app, NewHandler(ws))
	return app, ws
}

func do(t *testing.T, app *fiber.App, method, path, body, contentType string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	} else {
		out = map[string]any{"raw": string(raw)}
	}
	return resp.StatusCode, out
}

const heroPlan = `{"version":"1.0","operations":[
	{"op":"upsert_entity","collection":"pages","item":{"id":"home","title":"Home","sections":["hero"]}}
]}`

func TestApplyPlan_CommitsAndHeals(t *testing.T) {
	app, ws := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/_admin/plan/apply", heroPlan, fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, []any{"hero"}, data["healed"])
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["revision"])
	assert.NotNil(t, ws.Schema().GetSection("hero"))

	status, body = do(t, app, http.MethodGet, "/api/_admin/schema/summary", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["sections"])
}

func TestApplyPlan_RejectedReturnsReport(t *testing.T) {
	app, ws := newTestApp(t)

	plan := `{"version":"1.0","operations":[{"op":"upsert_entity","collection":"repositories","item":{"id":"r","model":"ghost"}}]}`
	status, body := do(t, app, http.MethodPost, "/api/_admin/plan/apply", plan, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "PLAN_REJECTED", errObj["code"])
	report := errObj["report"].(map[string]any)
	assert.Contains(t, report["errors"], "Repository r references missing model ghost")
	assert.Equal(t, 0, ws.Revision())

	status, body = do(t, app, http.MethodPost, "/api/_admin/plan/apply", `{"version":"2.0","operations":[]}`, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	details := body["error"].(map[string]any)["details"].([]any)
	require.NotEmpty(t, details)
	assert.Equal(t, "structural", details[0].(map[string]any)["rule"])

	status, _ = do(t, app, http.MethodPost, "/api/_admin/plan/apply", "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestValidatePlan_AlwaysReportsOutcome(t *testing.T) {
	app, ws := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/_admin/plan/validate",
		`{"version":"1.0","operations":[{"op":"remove_entity","collection":"pages"}]}`, fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["success"])
	assert.Equal(t, "structural", data["stage"])

	status, body = do(t, app, http.MethodPost, "/api/_admin/plan/validate", heroPlan, fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["success"])
	assert.Equal(t, 0, ws.Revision())
}

func TestPlanGrammar(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := do(t, app, http.MethodGet, "/api/_admin/plan/schema", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["definitions"], "upsert_entity")
}

func TestModifications(t *testing.T) {
	app, ws := newTestApp(t)
	mods := `{"models":{"order":{"name":"Order"}},"pages":[{"title":"Order History","route":"/orders"}]}`

	status, body := do(t, app, http.MethodPost, "/api/_admin/modifications/plan", mods, fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, status, body)
	ops := body["data"].(map[string]any)["operations"].([]any)
	require.Len(t, ops, 2)
	assert.Equal(t, "order-history", ops[1].(map[string]any)["item"].(map[string]any)["id"])
	assert.Equal(t, 0, ws.Revision())

	status, _ = do(t, app, http.MethodPost, "/api/_admin/modifications/apply", mods, fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, ws.Schema().GetPage("order-history"))

	status, body = do(t, app, http.MethodPost, "/api/_admin/modifications/plan", `{"buttons":[{"action":{}}]}`, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	status, _ = do(t, app, http.MethodPost, "/api/_admin/modifications/plan", `{}`, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSchemaImportExport(t *testing.T) {
	app, ws := newTestApp(t)

	yamlDoc := "app:\n  name: shop\npages:\n  - id: home\n    sections: [hero]\nsections:\n  - id: hero\n    title: Hero\n"
	status, body := do(t, app, http.MethodPut, "/api/_admin/schema", yamlDoc, "application/yaml")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "shop", ws.Schema().App.Name)

	status, body = do(t, app, http.MethodGet, "/api/_admin/schema?format=yaml", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["raw"], "name: shop")

	status, body = do(t, app, http.MethodPut, "/api/_admin/schema", `{"pages":[{"id":"p","sections":["nope"]}]}`, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "SCHEMA_REJECTED", body["error"].(map[string]any)["code"])
	assert.Equal(t, "shop", ws.Schema().App.Name)

	status, _ = do(t, app, http.MethodPut, "/api/_admin/schema", `{"pages":`, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSnapshotsAndRollback(t *testing.T) {
	app, ws := newTestApp(t)

	do(t, app, http.MethodPost, "/api/_admin/plan/apply", heroPlan, fiber.MIMEApplicationJSON)
	do(t, app, http.MethodPost, "/api/_admin/plan/apply",
		`{"version":"1.0","operations":[{"op":"update_fields","collection":"pages","id":"home","changes":{"title":"Start"}}]}`,
		fiber.MIMEApplicationJSON)
	require.Equal(t, 2, ws.Revision())

	status, body := do(t, app, http.MethodGet, "/api/_admin/snapshots", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = do(t, app, http.MethodGet, "/api/_admin/snapshots/1", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "plan", body["data"].(map[string]any)["source"])

	status, _ = do(t, app, http.MethodGet, "/api/_admin/snapshots/9", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, app, http.MethodGet, "/api/_admin/snapshots/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/_admin/snapshots/1/rollback", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, ws.Revision())
	assert.Equal(t, "Home", ws.Schema().GetPage("home").Title)
}
