package notify_test

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

	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/notify"
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
	notify.RegisterRoutes(app, notify.NewHandler(notify.NewDispatcher(s, 2)))
	return app, s
}

func send(t *testing.T, app *fiber.App, body any) (int, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/notifications/send", bytes.NewReader(b))
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

func TestSendHandler_PartialResolution(t *testing.T) {
	app, s := newApp(t)
	testutil.InsertUser(t, s, "u1@example.com", testutil.WithID("u1"), testutil.WithUsername("ada"))

	status, body := send(t, app, map[string]any{
		"userIds":    []any{"u1", "missing-id"},
		"title":      "Hi",
		"message":    "Hello {username}",
		"customData": map[string]any{"ignored": true},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Notifications sent to 1 user(s)", body["message"])
	assert.Len(t, body["notifications"], 1)
	assert.NotContains(t, body, "errors")

	sent := body["notifications"].([]any)[0].(map[string]any)
	assert.Equal(t, "u1", sent["userId"])
	assert.Equal(t, "ada", sent["userName"])
}

func TestSendHandler_Template(t *testing.T) {
	app, s := newApp(t)
	testutil.InsertUser(t, s, "u1@example.com", testutil.WithID("u1"))
	tplID := testutil.InsertTemplate(t, s, "promo", "Promo", "Hey {username}", true)

	status, _ := send(t, app, map[string]any{"userIds": []any{"u1"}, "templateId": tplID})
	require.Equal(t, http.StatusOK, status)

	var msg string
	require.NoError(t, s.DB.QueryRow(`SELECT admin_message FROM notifications`).Scan(&msg))
	assert.Equal(t, "Hey user", msg)

	status, body := send(t, app, map[string]any{"userIds": []any{"u1"}, "templateId": 12345})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Template not found or inactive", body["message"])
}

func TestSendHandler_Validation(t *testing.T) {
	app, _ := newApp(t)

	cases := []struct {
		body    map[string]any
		message string
	}{
		{map[string]any{"title": "t", "message": "m"}, "User IDs are required"},
		{map[string]any{"userIds": []any{}, "title": "t", "message": "m"}, "User IDs are required"},
		{map[string]any{"userIds": []any{"  "}, "title": "t", "message": "m"}, "User IDs are required"},
		{map[string]any{"userIds": []any{"u1"}}, "Either template ID or title/message is required"},
		{map[string]any{"userIds": []any{"u1"}, "title": "t"}, "Title and message are required"},
	}
	for _, tc := range cases {
		status, body := send(t, app, tc.body)
		assert.Equal(t, http.StatusBadRequest, status, tc.body)
		assert.Equal(t, tc.message, body["message"])
	}
}

func TestSendHandler_NoUsersFound(t *testing.T) {
	app, _ := newApp(t)

	status, body := send(t, app, map[string]any{"userIds": []any{"a", "b"}, "title": "t", "message": "m"})
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(2), body["requestedCount"])
	assert.Equal(t, "No users found with the provided IDs. Checked 2 IDs.", body["message"])
}
