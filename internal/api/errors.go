package api

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in ErrorBody.Code.
const (
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeUnauthorized     = "unauthorized"
	CodeInternal         = "internal_error"
)

// ErrorBody is the JSON body of every error response. RequestID echoes the
// X-Request-ID header so a failed call can be found in the station's log.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// respond encodes body as the JSON response.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(body)
}

// fail writes an ErrorBody for r.
func fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respond(w, status, ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID(r),
	})
}
