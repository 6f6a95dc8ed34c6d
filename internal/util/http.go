package util

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the wire shape of every gateway error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON encodes payload with the JSON content type. Encoding failures
// after the header is out cannot be reported; they are dropped.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// WriteError emits the gateway's error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg, requestID string) {
	WriteJSON(w, status, ErrorBody{Code: code, Message: msg, RequestID: requestID})
}
