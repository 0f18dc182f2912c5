// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"errors"
	"net/http"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/store"
)

// POST /authenticate: exchange an api_key/api_secret pair for a fresh
// session token. A wrong secret and an unknown key fail identically.
func (s *Server) handleAuthenticate(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "api_key", "api_secret"); apiErr != nil {
		return nil, apiErr
	}
	apiKey := r.FormValue("api_key")
	apiSecret := r.FormValue("api_secret")

	consumer, err := s.store.FindConsumerByKey(r.Context(), apiKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuthFailed()
		}
		return nil, ErrServer(err.Error())
	}
	if consumer.APISecret != apiSecret {
		return nil, ErrAuthFailed()
	}

	session, err := s.sessions.CreateSession(r.Context(), forum.Session{
		APIToken:   GenerateTimedHash(s.salt, consumer.APIKey),
		ConsumerID: consumer.ID,
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	return map[string]string{"api_token": session.APIToken}, nil
}

// POST /revoke: delete the session. Revoking a token that is already gone
// succeeds.
func (s *Server) handleRevoke(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "api_token"); apiErr != nil {
		return nil, apiErr
	}
	if err := s.sessions.DeleteSessionByToken(r.Context(), r.FormValue("api_token")); err != nil {
		return nil, ErrServer(err.Error())
	}
	return nil, nil
}
