// Package handler exposes the signup session API over HTTP. Handlers
// translate between wire JSON and the onboarding service; all domain logic
// lives below them.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/middleware"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT, domain.EBUSY:
		return http.StatusConflict // 409
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	case domain.EUNAVAILABLE:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  domain.FieldErrors  `json:"fields,omitempty"`
	} `json:"error"`
}

// ErrorResponse writes a structured error to the client. Validation errors
// carry the per-field messages; internal errors are logged with the
// underlying cause but only a generic message goes on the wire.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if fields := domain.GetValidationFields(err); fields != nil {
		ValidationErrorResponse(w, r, fields)
		return
	}

	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// ValidationErrorResponse writes a 422 with the per-field messages.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, fields domain.FieldErrors) {
	var body errorBody
	body.Error.Code = domain.EINVALID
	body.Error.Message = "Validation failed"
	body.Error.Fields = fields
	writeJSON(w, http.StatusUnprocessableEntity, body)
}

// writeJSON encodes v with the right headers. Encoding failures at this
// point can only be programming errors; headers are already sent, so the
// best that can be done is to stop writing.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
