package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes bounds JSON request bodies
const DefaultMaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by ParseJSONBody for a request without a body
var ErrEmptyBody = errors.New("request body is empty")

// RespondJSON sends data as the JSON response body
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// SuccessResponse wraps a payload as {"success": true, "data": ...}
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondSuccess sends a 200 SuccessResponse
func RespondSuccess(w http.ResponseWriter, data interface{}) {
	RespondJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// ExtractRequestID returns the request ID set by the request ID middleware,
// falling back to inbound headers.
func ExtractRequestID(r *http.Request) string {
	if id, ok := GetRequestID(r.Context()); ok {
		return id
	}
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return r.Header.Get("X-Amzn-Trace-Id")
}

// ParseJSONBody parses JSON request body with size limit.
// Unknown fields are ignored; clients send the whole preview form.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}
