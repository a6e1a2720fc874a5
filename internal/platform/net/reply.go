package net

import (
	"net/http"

	perr "churnlearn/internal/platform/errors"
)

// Wire is the envelope every transport answers with
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Error builds the error envelope; a nil error is a bare 200
func Error(err error, reqID string) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{StatusCode: http.StatusOK, Status: http.StatusText(http.StatusOK), RequestID: reqID}
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Error:      w.Message,
		Field:      w.Field,
		RequestID:  reqID,
	}
}
