package poetapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/poet-enclave/simulator/internal/poetenclave"
)

// APIError is the JSON error envelope every non-2xx response uses.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{Code: status, Message: message, Details: details})
}

// respondEnclaveError maps the enclave's three error kinds to HTTP status
// codes: NotInitialized -> 503 (the service isn't ready yet), Validation ->
// 422 (the caller's input failed a contract check), Malformed -> 400 (the
// caller's input could not even be parsed). Anything else is a 500.
func respondEnclaveError(w http.ResponseWriter, err error) {
	var notInit *poetenclave.NotInitializedError
	var validation *poetenclave.ValidationError
	var malformed *poetenclave.MalformedError

	switch {
	case errors.As(err, &notInit):
		respondError(w, http.StatusServiceUnavailable, "enclave not initialized", err.Error())
	case errors.As(err, &validation):
		respondError(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
	case errors.As(err, &malformed):
		respondError(w, http.StatusBadRequest, "malformed input", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
