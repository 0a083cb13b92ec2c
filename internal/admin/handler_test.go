package admin_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ogabook-admin/internal/admin"
	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/store"
	"ogabook-admin/internal/testutil"
)

func newApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := testutil.NewStore(t)
	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: engine.ErrorHandler(false),
	})
	admin.RegisterAdminRoutes(app, admin.NewHandler(s))
	return app, s
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func subscription(body map[string]any) any {
	return body["data"].(map[string]any)["subscription_enabled"]
}

func TestAppSetting_DefaultsToEnabled(t *testing.T) {
	app, s := newApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/app-setting", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "true", subscription(body))

	testutil.MustExec(t, s, `DROP TABLE app_settings`)
	status, body = doRequest(t, app, http.MethodGet, "/app-setting", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "true", subscription(body))
}

func TestAppSetting_UpdateRequiresExistingRow(t *testing.T) {
	app, _ := newApp(t)

	status, body := doRequest(t, app, http.MethodPut, "/app-setting", map[string]any{"subscription_enabled": false})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Setting not found. Please create the subscription_visible setting first.", body["message"])
}

func TestAppSetting_MissingTableOnUpdate(t *testing.T) {
	app, s := newApp(t)
	testutil.MustExec(t, s, `DROP TABLE app_settings`)

	status, body := doRequest(t, app, http.MethodPut, "/app-setting", map[string]any{"subscription_enabled": true})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "app_settings table does not exist", body["message"])
}

func TestAppSetting_UpdateThenRead(t *testing.T) {
	app, s := newApp(t)
	testutil.MustExec(t, s, `INSERT INTO app_settings (key, value) VALUES ('subscription_visible', 'true')`)

	cases := []struct {
		input any
		want  bool
		read  string
	}{
		{false, false, "false"},
		{"TRUE", true, "true"},
		{"yes", false, "false"},
		{true, true, "true"},
	}
	for _, tc := range cases {
		status, body := doRequest(t, app, http.MethodPut, "/app-setting", map[string]any{"subscription_enabled": tc.input})
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, "App settings updated successfully", body["message"])
		assert.Equal(t, tc.want, subscription(body))

		_, body = doRequest(t, app, http.MethodGet, "/app-setting", nil)
		assert.Equal(t, tc.read, subscription(body), tc.input)
	}
}

func TestAppSetting_ReadsStringValues(t *testing.T) {
	app, s := newApp(t)
	testutil.MustExec(t, s, `INSERT INTO app_settings (key, value) VALUES ('subscription_visible', '"FALSE"')`)

	_, body := doRequest(t, app, http.MethodGet, "/app-setting", nil)
	assert.Equal(t, "false", subscription(body))
}

func TestTemplates(t *testing.T) {
	app, s := newApp(t)
	welcome := testutil.InsertTemplate(t, s, "welcome", "Welcome", "Hello {username}", true)
	testutil.InsertTemplate(t, s, "alert", "Alert", "Heads up", true)
	retired := testutil.InsertTemplate(t, s, "retired", "Old", "Old body", false)

	status, body := doRequest(t, app, http.MethodGet, "/notification-templates", nil)
	require.Equal(t, http.StatusOK, status)
	templates := body["templates"].([]any)
	require.Len(t, templates, 2)
	assert.Equal(t, "alert", templates[0].(map[string]any)["name"])
	assert.Equal(t, "welcome", templates[1].(map[string]any)["name"])
	assert.Equal(t, true, templates[0].(map[string]any)["is_active"])

	status, body = doRequest(t, app, http.MethodGet, "/notification-templates/"+itoa(welcome), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Welcome", body["template"].(map[string]any)["title"])

	// inactive templates are still readable by id
	status, body = doRequest(t, app, http.MethodGet, "/notification-templates/"+itoa(retired), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["template"].(map[string]any)["is_active"])

	status, body = doRequest(t, app, http.MethodGet, "/notification-templates/9999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Template not found", body["message"])
}

func TestTemplates_EmptyList(t *testing.T) {
	app, _ := newApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/notification-templates", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["templates"])
}

func TestManagerCategories(t *testing.T) {
	app, s := newApp(t)
	testutil.InsertUser(t, s, "a@example.com", testutil.WithBusinessType("retail"))
	testutil.InsertUser(t, s, "b@example.com", testutil.WithBusinessType("retail"))
	testutil.InsertUser(t, s, "c@example.com", testutil.WithBusinessType("food"))
	testutil.InsertUser(t, s, "d@example.com")
	testutil.InsertUser(t, s, "e@example.com", testutil.WithBusinessType(""))
	testutil.InsertUser(t, s, "f@example.com", testutil.WithBusinessType("retail"), testutil.WithRole("admin"))

	status, body := doRequest(t, app, http.MethodGet, "/managers/categories", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{
		map[string]any{"category": "food", "count": float64(1)},
		map[string]any{"category": "retail", "count": float64(2)},
	}, body["categories"])
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
