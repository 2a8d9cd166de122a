package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dundie/backend/internal/middleware"
	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
)

const maxBodyBytes = 1_048_576 // 1 MB

var errTrailingData = errors.New("request body must only contain a single JSON object")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads exactly one JSON object with no unknown fields into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

// isFieldTypeError reports whether err is a JSON type mismatch on field.
func isFieldTypeError(err error, field string) bool {
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr) && typeErr.Field == field
}

func sendBadRequest(w http.ResponseWriter, message string) {
	services.SendErrorResponse(w, message, "INVALID_REQUEST", http.StatusBadRequest, nil)
}

// caller returns the authenticated account or answers 401.
func caller(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized, nil)
	}
	return acct, ok
}
