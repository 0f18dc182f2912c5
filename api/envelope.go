// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"encoding/json"
	"net/http"
)

// Meta carries the status portion of every API response. The HTTP status
// code always mirrors Code.
type Meta struct {
	Code        int          `json:"code"`
	ErrorType   string       `json:"error_type,omitempty"`
	ErrorDetail string       `json:"error_detail,omitempty"`
	ParamErrors []ParamError `json:"paramErrors,omitempty"`
}

// Envelope is the shape of every API response, success or failure.
type Envelope struct {
	Meta     Meta `json:"meta"`
	Response any  `json:"response"`
}

func writeEnvelope(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// response is always an object, never null
	if env.Response == nil {
		env.Response = struct{}{}
	}
	json.NewEncoder(w).Encode(env)
}

func writeOK(w http.ResponseWriter, response any) {
	writeEnvelope(w, http.StatusOK, Envelope{
		Meta:     Meta{Code: http.StatusOK},
		Response: response,
	})
}

func writeError(w http.ResponseWriter, err *Error) {
	writeEnvelope(w, err.Code, Envelope{
		Meta: Meta{
			Code:        err.Code,
			ErrorType:   err.Type,
			ErrorDetail: err.Message,
			ParamErrors: err.Params,
		},
	})
}
