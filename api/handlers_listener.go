// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"net/http"

	"github.com/forerun-app/forerun/forum"
)

// POST /listener/register: register (or replace) the calling consumer's
// webhook endpoint. One endpoint per consumer.
func (s *Server) handleListenerRegister(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "endpoint"); apiErr != nil {
		return nil, apiErr
	}
	consumer, apiErr := s.withConsumer(r, "listener/register")
	if apiErr != nil {
		return nil, apiErr
	}

	err := s.store.PutListener(r.Context(), forum.Listener{
		ConsumerID: consumer.ID,
		Endpoint:   r.FormValue("endpoint"),
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}
	return nil, nil
}
