package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mwestra/aurora/internal/errs"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status and envelope code.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var code, message string

	switch {
	case errors.Is(err, errs.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"
	case errors.Is(err, errs.ErrEmailNotConfirmed):
		status, code, message = http.StatusForbidden, "EMAIL_NOT_CONFIRMED", "email address is not confirmed"
	case errors.Is(err, errs.ErrEmailAlreadyExists):
		status, code, message = http.StatusConflict, "EMAIL_ALREADY_EXISTS", "email address is already registered"
	case errors.Is(err, errs.ErrInvalidAuthCode):
		status, code, message = http.StatusBadRequest, "INVALID_AUTH_CODE", "the code is incorrect"
	case errors.Is(err, errs.ErrAuthCodeExpired):
		status, code, message = http.StatusBadRequest, "AUTH_CODE_EXPIRED", "the code has expired, request a new one"
	case errors.Is(err, errs.ErrTokenExpired):
		status, code, message = http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired"
	case errors.Is(err, errs.ErrTokenInvalid):
		status, code, message = http.StatusUnauthorized, "TOKEN_INVALID", "invalid token"
	case errors.Is(err, errs.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"
	case errors.Is(err, errs.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "ALREADY_EXISTS", "resource already exists"
	default:
		status, code, message = http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeValidationError reports per-field validation failures.
func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Fields:  fields,
	}})
}

// writeBadRequest reports an unreadable request body.
func writeBadRequest(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "VALIDATION_ERROR",
		Message: "invalid request body",
	}})
}
