package notify

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/store"
)

type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

type sendRequest struct {
	UserIDs    []any          `json:"userIds"`
	TemplateID any            `json:"templateId"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	CustomData map[string]any `json:"customData"` // accepted for compatibility, not used
}

func (r sendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserIDs, validation.Required.Error("User IDs are required")),
	)
}

func (r sendRequest) job() Job {
	var templateID string
	if ids := store.CanonicalIDs([]any{r.TemplateID}); len(ids) == 1 {
		templateID = ids[0]
	}
	return Job{
		RecipientIDs: store.CanonicalIDs(r.UserIDs),
		TemplateID:   templateID,
		Title:        r.Title,
		Message:      r.Message,
	}
}

// Send handles POST /notifications/send
func (h *Handler) Send(c *fiber.Ctx) error {
	var body sendRequest
	if err := c.BodyParser(&body); err != nil {
		return engine.BadRequestError("INVALID_PAYLOAD", "Invalid request body")
	}
	if err := body.Validate(); err != nil {
		return engine.BadRequestError("VALIDATION_FAILED", "User IDs are required")
	}

	job := body.job()
	if len(job.RecipientIDs) == 0 {
		return engine.BadRequestError("VALIDATION_FAILED", "User IDs are required")
	}
	if job.TemplateID == "" && job.Title == "" && job.Message == "" {
		return engine.BadRequestError("VALIDATION_FAILED", "Either template ID or title/message is required")
	}

	result, err := h.dispatcher.Send(c.UserContext(), job)
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		return engine.NotFoundError("TEMPLATE_NOT_FOUND", "Template not found or inactive")
	case errors.Is(err, ErrMissingContent):
		return engine.BadRequestError("VALIDATION_FAILED", "Title and message are required")
	case errors.Is(err, ErrNoRecipients):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success":        false,
			"code":           "NOT_FOUND",
			"message":        fmt.Sprintf("No users found with the provided IDs. Checked %d IDs.", len(body.UserIDs)),
			"providedIds":    job.RecipientIDs,
			"requestedCount": len(body.UserIDs),
		})
	case err != nil:
		return engine.DataLayerError("Error sending notifications", err)
	}

	resp := fiber.Map{
		"success":       true,
		"message":       fmt.Sprintf("Notifications sent to %d user(s)", len(result.Notifications)),
		"notifications": result.Notifications,
	}
	if len(result.Errors) > 0 {
		resp["errors"] = result.Errors
	}
	return c.JSON(resp)
}

// RegisterRoutes mounts the notification routes on an authenticated group.
func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/notifications/send", h.Send)
}
