// Package handler provides the HTTP handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// apiErrorResponse is the unified error response format.
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse writes an error response in the unified format.
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestBody reports a request body that failed to parse.
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(
		"The request body could not be parsed.",
		"Send a well-formed JSON request.",
	))
}

// handleServiceError converts a service-layer error into an HTTP response.
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// Anything that is not an APIError is an internal error
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Wait a moment and try again.",
	})
}

// mapAPIErrorToHTTPStatus maps an APIError code to an HTTP status code.
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials, model.ErrCodeNotSignedIn:
		return http.StatusUnauthorized
	case model.ErrCodeDuplicateAccount:
		return http.StatusConflict
	case model.ErrCodeUnknownEmail:
		return http.StatusNotFound
	case model.ErrCodeAccountDisabled:
		return http.StatusForbidden
	case model.ErrCodeFederatedFailed:
		return http.StatusBadGateway
	case model.ErrCodeProfileFetchFailed, model.ErrCodeBackendUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidReport, model.ErrCodeInvalidProfile:
		return http.StatusBadRequest
	case model.ErrCodeUnsafePhotoURL:
		return http.StatusUnprocessableEntity
	case model.ErrCodeReportNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
