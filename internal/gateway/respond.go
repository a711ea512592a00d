// ABOUTME: JSON request decoding and {data, message} response helpers
// ABOUTME: Store errors are mapped to the auth error taxonomy before being written

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2389/shelf-gateway/internal/auth"
	"github.com/2389/shelf-gateway/internal/store"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// envelope wraps every resource response
type envelope struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Data: data, Message: message})
}

// writeError renders err, treating store.ErrNotFound as 404.
func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, auth.ErrorBody{Error: "not found", StatusCode: http.StatusNotFound})
		return
	}
	if errors.Is(err, store.ErrDuplicateEmail) {
		err = auth.Conflict("email already exists")
	}
	auth.WriteError(w, g.logger, err)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched so
// field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &auth.Error{Kind: auth.KindBadRequest, Reason: "invalid request body", Err: err}
	}
	return nil
}
