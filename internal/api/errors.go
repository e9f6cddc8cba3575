package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/query"
)

// apiError is the wire form of a failed request:
// {"error":{"type":...,"code":...,"message":...}}.
type apiError struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// statusFor maps an engine failure onto the response status and error
// type. Upstream outages (timeouts, refused connections) surface as
// 503 so clients can tell them from explorer bugs.
func statusFor(err error) (int, string) {
	var netErr net.Error
	switch {
	case errors.Is(err, query.ErrInput):
		return http.StatusBadRequest, "InvalidInput"
	case errors.Is(err, query.ErrNotFound), errors.Is(err, chain.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return http.StatusServiceUnavailable, "ServiceUnavailable"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func writeError(w http.ResponseWriter, status int, typ, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{
		Error: apiError{Type: typ, Code: status, Message: message},
	})
}

// writeQueryError folds an engine error into the envelope.
func writeQueryError(w http.ResponseWriter, err error) {
	status, typ := statusFor(err)
	writeError(w, status, typ, err.Error())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	json.NewEncoder(w).Encode(v)
}
