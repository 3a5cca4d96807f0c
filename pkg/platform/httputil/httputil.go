package httputil

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	dErrors "placeclaim/pkg/domain-errors"
)

// Envelope is the structured result every claim operation returns:
// {success, data?, error?}.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed operation.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so encoding errors are ignored.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteSuccess writes a success envelope around data.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithData(w, err, nil)
}

// WriteErrorWithData writes a failure envelope that still carries data, used when an
// operation completed but ended in a business rejection (e.g. fraud auto-reject).
func WriteErrorWithData(w http.ResponseWriter, err error, data any) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, Envelope{
			Error: &ErrorBody{Code: string(dErrors.CodeInternal), Message: "internal error"},
		})
		return
	}

	if domainErr.Code == dErrors.CodeRateLimited && domainErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(domainErr.RetryAfter.Seconds()))))
	}

	message := domainErr.Message
	if domainErr.Code == dErrors.CodeInternal {
		// Internal messages can carry store details; keep them in logs only.
		message = "internal error"
	}
	WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), Envelope{
		Data:  data,
		Error: &ErrorBody{Code: string(domainErr.Code), Message: message},
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeAlreadyClaimed, dErrors.CodeInvalidTransition:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeExpired:
		return http.StatusGone
	case dErrors.CodeExhausted:
		return http.StatusLocked
	case dErrors.CodeMismatch, dErrors.CodeNotEligible, dErrors.CodeFraudRejected:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
