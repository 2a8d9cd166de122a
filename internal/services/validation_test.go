package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestStruct struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
	Value int    `validate:"required,gt=0"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := TestStruct{Name: "Pam Beesly", Email: "pam@dm.com", Value: 5}
		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("invalid struct - missing required fields", func(t *testing.T) {
		invalid := TestStruct{
			Name: "P", // Too short
			// Email missing
			Value: -1,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3)
	})

	t.Run("invalid email format", func(t *testing.T) {
		invalid := TestStruct{Name: "Pam Beesly", Email: "invalid-email", Value: 5}

		err := vh.ValidateStruct(&invalid)
		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Email", validationErrors[0].Field())
		assert.Equal(t, "email", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", "INTERNAL_ERROR", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		response := decodeError(t, w)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Equal(t, "INTERNAL_ERROR", response.Code)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		validationErr := NewValidationHelper().ValidateStruct(&TestStruct{Name: "P", Email: "invalid-email"})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", "VALIDATION_FAILED", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeError(t, w)
		assert.Contains(t, response.Details, "Name")
		assert.Contains(t, response.Details, "Email")
		assert.Contains(t, response.Details, "Value")
	})

	t.Run("non validation error is ignored for details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendErrorResponse(w, "Invalid request", "INVALID_REQUEST", http.StatusBadRequest, errors.New("boom"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, decodeError(t, w).Details)
	})
}

func TestSendServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("recipient %q: %w", "ghost", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid value", ErrInvalidValue, http.StatusBadRequest, "INVALID_VALUE"},
		{"insufficient balance", ErrInsufficientBalance, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
		{"self transfer", ErrSelfTransfer, http.StatusBadRequest, "SELF_TRANSFER"},
		{"invalid ordering", fmt.Errorf("%w: %q", ErrInvalidOrdering, "name"), http.StatusBadRequest, "INVALID_ORDERING"},
		{"retries exhausted", fmt.Errorf("%w: %w", ErrConflictRetryExhausted, errors.New("40001")), http.StatusConflict, "CONFLICT_RETRY_EXHAUSTED"},
		{"storage failure", fmt.Errorf("%w: %w", ErrStorageFailure, errors.New("connection refused")), http.StatusInternalServerError, "STORAGE_FAILURE"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SendServiceError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.code, response.Code)
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}

	t.Run("storage cause is not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendServiceError(w, fmt.Errorf("%w: %w", ErrStorageFailure, errors.New("password=secret")))
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("validation errors carry details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendServiceError(w, NewValidationHelper().ValidateStruct(&TestStruct{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, w).Code)
	})
}
