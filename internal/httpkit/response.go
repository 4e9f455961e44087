// Package httpkit holds the small HTTP helpers shared by every handler:
// the JSON error envelope, request decoding, and CORS.
package httpkit

import (
	"encoding/json"
	"net/http"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a coded error onto the envelope and its HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	WriteErr(w,
		errors.GetHTTPStatus(err),
		string(errors.GetCode(err)),
		err.Error(),
		errors.GetFields(err),
	)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details

	_ = json.NewEncoder(w).Encode(env)
}
