package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"

	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/instrument"
	"ogabook-admin/internal/metadata"
	"ogabook-admin/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     *store.Store
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *store.Store, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{store: s, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type deleteAccountRequest struct {
	Email string `json:"email"`
}

func (r deleteAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return engine.BadRequestError("INVALID_PAYLOAD", "Invalid request body")
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if err := body.Validate(); err != nil {
		return engine.BadRequestError("VALIDATION_FAILED", "Email and password are required")
	}

	ctx := c.UserContext()
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "auth", "handler", "auth.login")
	defer span.End()

	user, err := h.findUserByEmail(ctx, body.Email)
	if err != nil {
		span.SetStatus("error")
		if errors.Is(err, store.ErrNotFound) {
			return engine.UnauthorizedError("Invalid credentials")
		}
		return engine.DataLayerError("Server error during login", err)
	}

	passwordHash := stringValue(user["password_hash"])
	if passwordHash == "" {
		span.SetStatus("error")
		return engine.UnauthorizedError("User account not properly configured")
	}
	if !CheckPassword(body.Password, passwordHash) {
		span.SetStatus("error")
		return engine.UnauthorizedError("Invalid credentials")
	}

	// Only an explicit false blocks the account; NULL counts as active
	if active, ok := store.Truthy(user["is_active"]); ok && !active {
		span.SetStatus("error")
		return engine.ForbiddenError("Account is inactive")
	}

	principal := metadata.Principal{
		ID:       stringValue(user["id"]),
		Email:    stringValue(user["email"]),
		Username: stringValue(user["username"]),
		Role:     stringValue(user["role"]),
	}
	token, err := GenerateToken(principal, h.jwtSecret, h.tokenTTL)
	if err != nil {
		return engine.InternalError("Server error during login", err)
	}

	span.SetEntity("users", principal.ID)
	instrument.Logger(ctx).WithField("user_id", principal.ID).Info("admin logged in")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"admin": fiber.Map{
			"id":       principal.ID,
			"email":    principal.Email,
			"username": principal.Username,
			"role":     user["role"],
		},
	})
}

// Verify handles GET /api/auth/verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token := extractToken(c)
	if token == "" {
		return engine.UnauthorizedError("No token provided")
	}
	claims, err := ParseToken(token, h.jwtSecret)
	if err != nil {
		return engine.UnauthorizedError("Invalid or expired token")
	}
	return c.JSON(fiber.Map{"success": true, "admin": claims})
}

// UserEmail handles GET /api/auth/user/email/:userId. It is public: the
// subscription page calls it before the user has any credential.
func (h *AuthHandler) UserEmail(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return engine.BadRequestError("VALIDATION_FAILED", "User ID is required")
	}

	rows, err := h.store.FindByIDs(c.UserContext(), "users", []string{"id", "email", "phone"}, []string{userID})
	if err != nil {
		return engine.DataLayerError("Error fetching user details", err)
	}
	if len(rows) == 0 {
		return engine.NotFoundError("NOT_FOUND", "User not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"email":   nullIfEmpty(rows[0]["email"]),
		"phone":   nullIfEmpty(rows[0]["phone"]),
	})
}

// DeleteAccount handles POST /api/auth/delete-account.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	var body deleteAccountRequest
	if err := c.BodyParser(&body); err != nil {
		return engine.BadRequestError("INVALID_PAYLOAD", "Invalid request body")
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" {
		return engine.BadRequestError("VALIDATION_FAILED", "Email is required")
	}
	if err := body.Validate(); err != nil {
		return engine.BadRequestError("VALIDATION_FAILED", "Invalid email format")
	}

	ctx := c.UserContext()
	user, err := h.findUserByEmail(ctx, body.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("NOT_FOUND", "No account found with this email address. Please check your email and try again.")
		}
		return engine.DataLayerError("Server error during account deletion", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	n, err := store.Exec(ctx, h.store.DB, "DELETE FROM users WHERE id = "+pb.Add(user["id"]), pb.Params()...)
	if err != nil {
		return engine.DataLayerError("Server error during account deletion", err)
	}
	if n == 0 {
		return engine.InternalError("Failed to delete account. Please try again later.", fmt.Errorf("no row deleted for user %v", user["id"]))
	}

	instrument.Logger(ctx).WithField("user_id", user["id"]).Warn("account deleted on request")
	return c.JSON(fiber.Map{"success": true, "message": "Account deleted successfully"})
}

// RegisterAuthRoutes registers the auth routes on the given router.
func RegisterAuthRoutes(r fiber.Router, h *AuthHandler, publicAccountDeletion bool) {
	r.Post("/login", h.Login)
	r.Get("/verify", h.Verify)
	r.Get("/user/email/:userId", h.UserEmail)
	if publicAccountDeletion {
		r.Post("/delete-account", h.DeleteAccount)
	}
}

// --- helpers ---

func (h *AuthHandler) findUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	pb := h.store.Dialect.NewParamBuilder()
	return store.QueryRow(ctx, h.store.DB,
		"SELECT id, email, username, password_hash, role, is_active FROM users WHERE LOWER(email) = "+pb.Add(email),
		pb.Params()...)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func nullIfEmpty(v any) any {
	if stringValue(v) == "" {
		return nil
	}
	return v
}
