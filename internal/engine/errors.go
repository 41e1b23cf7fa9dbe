package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
	Report  *Report       `json:"report,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// StatusCode is the HTTP status ErrorHandler sends for e.
func (e *AppError) StatusCode() int { return e.Status }

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func InvalidPayloadError(msg string) *AppError {
	return &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: msg}
}

// SchemaRejectedError reports a document that failed the integrity check.
func SchemaRejectedError(res ValidationResult) *AppError {
	return &AppError{
		Code:    "SCHEMA_REJECTED",
		Status:  422,
		Message: "Schema failed integrity check",
		Details: detailsFromMessages(string(StageReferential), res.Errors),
	}
}

// PlanRejectedError wraps a failed commit. The report travels with the error so
// clients see which operations failed and why.
func PlanRejectedError(out *Outcome) *AppError {
	return &AppError{
		Code:    "PLAN_REJECTED",
		Status:  422,
		Message: fmt.Sprintf("Plan rejected at %s stage", out.Stage),
		Details: detailsFromMessages(string(out.Stage), out.Report.Errors),
		Report:  &out.Report,
	}
}

// detailsFromMessages turns plain validation messages into error details.
func detailsFromMessages(rule string, msgs []string) []ErrorDetail {
	details := make([]ErrorDetail, 0, len(msgs))
	for _, m := range msgs {
		details = append(details, ErrorDetail{Rule: rule, Message: m})
	}
	return details
}

// ErrorHandler is the fiber error handler: *AppError values render as the
// error envelope, anything else is logged and reported as an internal error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Error: &AppError{Code: "HTTP_ERROR", Message: fiberErr.Message},
		})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: &AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
