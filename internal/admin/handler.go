package admin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/metadata"
	"ogabook-admin/internal/store"
)

// SubscriptionSettingKey is the app_settings row behind the subscription toggle.
const SubscriptionSettingKey = "subscription_visible"

const settingsTable = "app_settings"

// Handler serves the fixed-shape admin endpoints: app settings, notification
// templates and manager categories.
type Handler struct {
	store *store.Store
	intro *metadata.Introspector
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s, intro: metadata.NewIntrospector(s)}
}

// RegisterAdminRoutes mounts the routes on an authenticated group.
func RegisterAdminRoutes(r fiber.Router, h *Handler) {
	r.Get("/app-setting", h.GetAppSetting)
	r.Put("/app-setting", h.UpdateAppSetting)

	r.Get("/notification-templates", h.ListTemplates)
	r.Get("/notification-templates/:id", h.GetTemplate)

	r.Get("/managers/categories", h.ManagerCategories)
}

// --- App settings ---

// GetAppSetting reports the subscription toggle. A missing table or row
// reads as enabled.
func (h *Handler) GetAppSetting(c *fiber.Ctx) error {
	ctx := c.UserContext()
	enabled := func(v string) error {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"subscription_enabled": v}})
	}

	exists, err := h.intro.HasTable(ctx, settingsTable)
	if err != nil {
		return engine.DataLayerError("Error fetching app_settings", err)
	}
	if !exists {
		return enabled("true")
	}

	pb := h.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(ctx, h.store.DB,
		"SELECT key, value FROM app_settings WHERE key = "+pb.Add(SubscriptionSettingKey), pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return enabled("true")
		}
		return engine.DataLayerError("Error fetching app_settings", err)
	}
	return enabled(settingString(row["value"]))
}

// UpdateAppSetting stores the toggle as a JSON boolean. It only updates the
// existing row and never creates one.
func (h *Handler) UpdateAppSetting(c *fiber.Ctx) error {
	var body struct {
		SubscriptionEnabled any `json:"subscription_enabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.BadRequestError("INVALID_PAYLOAD", "Invalid request body")
	}
	value := strings.EqualFold(fmt.Sprint(body.SubscriptionEnabled), "true")

	ctx := c.UserContext()
	exists, err := h.intro.HasTable(ctx, settingsTable)
	if err != nil {
		return engine.DataLayerError("Error updating app_settings", err)
	}
	if !exists {
		return engine.DataLayerError("app_settings table does not exist", fmt.Errorf("table %s not found", settingsTable))
	}

	doc, err := json.Marshal(value)
	if err != nil {
		return engine.InternalError("Error updating app_settings", err)
	}
	pb := h.store.Dialect.NewParamBuilder()
	sql := fmt.Sprintf("UPDATE app_settings SET value = %s WHERE key = %s RETURNING key",
		h.store.Dialect.JSONExpr(pb.Add(string(doc))), pb.Add(SubscriptionSettingKey))
	if _, err := store.QueryRow(ctx, h.store.DB, sql, pb.Params()...); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("NOT_FOUND", "Setting not found. Please create the subscription_visible setting first.")
		}
		return engine.DataLayerError("Error updating app_settings", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "App settings updated successfully",
		"data":    fiber.Map{"subscription_enabled": value},
	})
}

// settingString renders a stored JSON value as a lower-case string.
func settingString(v any) string {
	if v == nil {
		return "true"
	}
	raw := fmt.Sprint(v)
	var decoded any
	if s, ok := v.(string); ok && json.Unmarshal([]byte(s), &decoded) == nil {
		v = decoded
	}
	switch val := v.(type) {
	case nil:
		return "true"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return strings.ToLower(val)
	case float64:
		return strings.ToLower(fmt.Sprint(val))
	default:
		return strings.ToLower(raw)
	}
}

// --- Notification templates ---

func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	pb := h.store.Dialect.NewParamBuilder()
	rows, err := store.QueryRows(c.UserContext(), h.store.DB,
		`SELECT id, name, title, message, category, is_active, created_at
		 FROM notification_templates WHERE is_active = `+pb.Add(true)+` ORDER BY name`, pb.Params()...)
	if err != nil {
		return engine.DataLayerError("Error fetching notification templates", err)
	}
	h.fixBooleans(rows)
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"success": true, "templates": rows})
}

func (h *Handler) GetTemplate(c *fiber.Ctx) error {
	pb := h.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(c.UserContext(), h.store.DB,
		fmt.Sprintf("SELECT id, name, title, message, category, is_active FROM notification_templates WHERE %s = %s",
			h.store.Dialect.TextExpr("id"), pb.Add(c.Params("id"))), pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("TEMPLATE_NOT_FOUND", "Template not found")
		}
		return engine.DataLayerError("Error fetching notification template", err)
	}
	h.fixBooleans([]map[string]any{row})
	return c.JSON(fiber.Map{"success": true, "template": row})
}

// --- Managers ---

// ManagerCategories counts managers per non-empty business type.
func (h *Handler) ManagerCategories(c *fiber.Ctx) error {
	pb := h.store.Dialect.NewParamBuilder()
	rows, err := store.QueryRows(c.UserContext(), h.store.DB,
		`SELECT business_type AS category, COUNT(*) AS count
		 FROM users
		 WHERE role = `+pb.Add("manager")+` AND business_type IS NOT NULL AND business_type <> ''
		 GROUP BY business_type
		 ORDER BY business_type`, pb.Params()...)
	if err != nil {
		return engine.DataLayerError("Error fetching manager categories", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"success": true, "categories": rows})
}

func (h *Handler) fixBooleans(rows []map[string]any) {
	if h.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, []string{"is_active"})
	}
}
