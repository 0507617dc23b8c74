package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/askhub/askhub-server/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"id": "q1"}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"id": "q1"}, decode(t, w))
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"not found", apperrors.NotFound("question q1 not found"), http.StatusNotFound, "NOT_FOUND", "question q1 not found"},
		{"rate limited", apperrors.RateLimited("slow down"), http.StatusTooManyRequests, "RATE_LIMITED", "slow down"},
		{"wrapped", errors.Join(errors.New("ctx"), apperrors.Conflict("taken")), http.StatusConflict, "CONFLICT", "taken"},
		{"uncoded", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, tt.err, nil)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)["error"].(map[string]any)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.msg, body["message"])
			assert.NotContains(t, body, "details")
		})
	}
}

func TestError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, apperrors.ValidationWithDetails("validation failed: title", map[string]string{"title": "too short"}), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, map[string]any{"title": "too short"}, body["details"])
}
