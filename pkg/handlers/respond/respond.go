// Package respond writes JSON responses for the HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chris/credit-reconciliation/pkg/api"
)

// Error codes shared by every endpoint.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUpstream        = "UPSTREAM_UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
	CodeMetadata        = "METADATA_MISMATCH"
	CodeInvalidSig      = "INVALID_SIGNATURE"
	CodeMissingParam    = "MISSING_PARAMETER"
	CodeInvalidParam    = "INVALID_PARAMETER"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error writes an {error, code} body.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, api.Error{Error: message, Code: code})
}

// ParamError is the ErrorHandlerFunc for the generated router. It reports
// binding failures in the same shape as handler errors.
func ParamError(w http.ResponseWriter, r *http.Request, err error) {
	var required *api.RequiredParamError
	if errors.As(err, &required) {
		Error(w, http.StatusBadRequest, CodeMissingParam, err.Error())
		return
	}
	Error(w, http.StatusBadRequest, CodeInvalidParam, err.Error())
}
