// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/forerun-app/forerun/forum"
)

// callbackPayload is what the API's webhook dispatcher delivers. api_secret
// proves the call came from the API and not from a random crawler.
type callbackPayload struct {
	Type      string                `json:"type"`
	Thread    *forum.RenderedThread `json:"thread,omitempty"`
	Post      *forum.RenderedPost   `json:"post,omitempty"`
	APISecret string                `json:"api_secret,omitempty"`
}

// url: POST /callback
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if payload.APISecret != s.config.APISecret {
		s.log.Infof("callback with wrong api_secret, referer: %q", r.Header.Get("Referer"))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	// re-broadcast to browsers, without the secret
	payload.APISecret = ""
	if msg, err := json.Marshal(payload); err == nil {
		s.hub.Broadcast(msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}
