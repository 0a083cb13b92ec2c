package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"ogabook-admin/internal/instrument"
	"ogabook-admin/internal/store"
)

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
	Kind    string `json:"kind,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

// StatusCode is the HTTP status the error renders with.
func (e *AppError) StatusCode() int {
	return e.Status
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// ErrorResponse is the failure envelope every endpoint shares.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Hint    string `json:"hint,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func BadRequestError(code, msg string) *AppError {
	return &AppError{Code: code, Status: fiber.StatusBadRequest, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: fiber.StatusUnauthorized, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: fiber.StatusForbidden, Message: msg}
}

func NotFoundError(code, msg string) *AppError {
	return &AppError{Code: code, Status: fiber.StatusNotFound, Message: msg}
}

func TableNotFoundError(name string) *AppError {
	return NotFoundError("TABLE_NOT_FOUND", fmt.Sprintf("Table %q not found", name))
}

func RecordNotFoundError() *AppError {
	return NotFoundError("NOT_FOUND", "Record not found")
}

func NoPrimaryKeyError() *AppError {
	return BadRequestError("NO_PRIMARY_KEY", "Table does not have a primary key")
}

func NoValidColumnsError(msg string) *AppError {
	return BadRequestError("NO_VALID_COLUMNS", msg)
}

func QueryRejectedError() *AppError {
	return &AppError{
		Code:    "QUERY_REJECTED",
		Status:  fiber.StatusForbidden,
		Message: "This operation is not allowed for security reasons",
	}
}

// DataLayerError classifies a database failure and attaches the operator hint.
func DataLayerError(msg string, err error) *AppError {
	dbErr := store.Classify(err)
	appErr := &AppError{
		Code:    "DATABASE_ERROR",
		Status:  fiber.StatusInternalServerError,
		Message: msg,
		cause:   err,
	}
	if dbErr != nil {
		appErr.Hint = dbErr.Hint()
		appErr.Kind = string(dbErr.Kind)
		if detail := dbErr.Detail(); detail != "" {
			appErr.Hint = detail
		}
	}
	return appErr
}

func InternalError(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Status: fiber.StatusInternalServerError, Message: msg, cause: err}
}

// ErrorHandler renders every error returned by a handler as an ErrorResponse.
// Driver error text is only exposed when showDetail is set.
func ErrorHandler(showDetail bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				appErr = NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message)
			} else {
				appErr = InternalError("Internal server error", err)
			}
		}

		resp := ErrorResponse{
			Success: false,
			Message: appErr.Message,
			Code:    appErr.Code,
			Hint:    appErr.Hint,
			Kind:    appErr.Kind,
		}
		if appErr.cause != nil {
			instrument.Logger(c.UserContext()).WithError(appErr.cause).WithFields(log.Fields{
				"code":   appErr.Code,
				"method": c.Method(),
				"path":   c.Path(),
			}).Error(appErr.Message)
			if showDetail {
				resp.Error = appErr.cause.Error()
			}
		}
		return c.Status(appErr.Status).JSON(resp)
	}
}
