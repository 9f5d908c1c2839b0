/*-------------------------------------------------------------------------
 *
 * errors.go
 *    API error types and response helpers
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/api/errors.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"encoding/json"
	"net/http"
)

/* APIError carries an HTTP status code alongside the error */
type APIError struct {
	Code      int
	Message   string
	Err       error
	RequestID string
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

/* ErrorResponse is the JSON body written for failed requests */
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

var (
	ErrNotFound   = &APIError{Code: http.StatusNotFound, Message: "resource not found"}
	ErrBadRequest = &APIError{Code: http.StatusBadRequest, Message: "invalid request"}
)

/* NewError builds an APIError with the given status and message */
func NewError(code int, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

/* WrapError attaches the request ID to a template error */
func WrapError(template *APIError, requestID string) *APIError {
	return &APIError{
		Code:      template.Code,
		Message:   template.Message,
		Err:       template.Err,
		RequestID: requestID,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err *APIError) {
	response := ErrorResponse{
		Error: err.Message,
		Code:  err.Code,
	}
	if err.Err != nil {
		response.Message = err.Err.Error()
	}
	if err.RequestID != "" {
		w.Header().Set("X-Request-ID", err.RequestID)
	}
	respondJSON(w, err.Code, response)
}
