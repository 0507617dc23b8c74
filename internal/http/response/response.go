// Package response writes JSON bodies and the error envelope for handlers
// that sit outside huma: middleware, the event stream and /metrics guards.
package response

import (
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	apperrors "github.com/askhub/askhub-server/internal/errors"
)

// ErrorBody is the payload under "error".
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the error response shape: {"error": {code, message, details}}.
type Envelope struct {
	Error ErrorBody `json:"error"`
}

// FromError converts err into its HTTP status and envelope. Errors without a
// code become a generic INTERNAL so causes never leak to clients.
func FromError(err error) (int, Envelope) {
	var coded *apperrors.Error
	if apperrors.As(err, &coded) {
		return coded.HTTPStatus(), Envelope{Error: ErrorBody{
			Code:    string(coded.Code),
			Message: coded.Message,
			Details: coded.Details,
		}}
	}
	return http.StatusInternalServerError, Envelope{Error: ErrorBody{
		Code:    string(apperrors.CodeInternal),
		Message: "internal server error",
	}}
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// Error writes the envelope for err. Uncoded errors are logged.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, env := FromError(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	JSON(w, status, env, logger)
}
