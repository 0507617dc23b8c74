package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/http/response"
)

// APIError renders as {"error": {code, message, details}}. It implements
// huma.StatusError.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status int
	Body   response.ErrorBody `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Body.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler makes huma render coded errors with their own status
// and request validation failures as VALIDATION_ERROR with per-field
// details. Call it after creating the huma.API and before serving.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var coded *apperrors.Error
			if errors.As(err, &coded) {
				st, env := response.FromError(coded)
				return &APIError{status: st, Body: env.Error}
			}
		}

		if details := fieldErrors(errs); len(details) > 0 {
			return &APIError{
				status: http.StatusBadRequest,
				Body: response.ErrorBody{
					Code:    string(apperrors.CodeValidation),
					Message: message,
					Details: details,
				},
			}
		}

		if status >= http.StatusInternalServerError {
			message = "internal server error"
		}
		return &APIError{
			status: status,
			Body: response.ErrorBody{
				Code:    statusToCode(status),
				Message: message,
			},
		}
	}
}

// fieldErrors collects huma's request validation details by location.
func fieldErrors(errs []error) map[string]string {
	var out map[string]string
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if !errors.As(err, &detail) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[detail.Location] = detail.Message
	}
	return out
}

// statusToCode maps HTTP status codes to error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(apperrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(apperrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(apperrors.CodeForbidden)
	case http.StatusNotFound:
		return string(apperrors.CodeNotFound)
	case http.StatusConflict:
		return string(apperrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(apperrors.CodeRateLimited)
	default:
		return string(apperrors.CodeInternal)
	}
}
