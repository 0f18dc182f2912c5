// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/store"
)

// policy is the single place operation access levels live. nil means any
// authenticated consumer, level checks skipped entirely.
var policy = map[string]*forum.AccessLevel{
	"user/new":          lvl(forum.SystemAdmin),
	"user/login":        lvl(forum.SystemAdmin),
	"user/find":         lvl(forum.Member),
	"user/update":       nil,
	"thread/new":        lvl(forum.Member),
	"threads":           lvl(forum.Member),
	"thread/get":        lvl(forum.Member),
	"post/new":          lvl(forum.Member),
	"post/get":          lvl(forum.Member),
	"board/new":         lvl(forum.Member),
	"boards":            lvl(forum.Member),
	"board/get":         lvl(forum.Member),
	"listener/register": lvl(forum.ListenerAdmin),
}

func lvl(l forum.AccessLevel) *forum.AccessLevel {
	return &l
}

// withConsumer resolves the request's api_token to its consumer and
// enforces the operation's minimum access level. Sessions and consumers are
// re-read from the store on every request; revocation takes effect
// immediately.
func (s *Server) withConsumer(r *http.Request, op string) (forum.Consumer, *Error) {
	token := r.FormValue("api_token")
	if token == "" {
		return forum.Consumer{}, ErrInvalidToken()
	}

	ctx := r.Context()
	session, err := s.sessions.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return forum.Consumer{}, ErrInvalidToken()
		}
		return forum.Consumer{}, ErrServer(err.Error())
	}

	consumer, err := s.store.GetConsumer(ctx, session.ConsumerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// a dangling session reads the same as a bad token
			return forum.Consumer{}, ErrInvalidToken()
		}
		return forum.Consumer{}, ErrServer(err.Error())
	}

	if min := policy[op]; min != nil && consumer.AccessLevel < *min {
		return forum.Consumer{}, ErrAccessLevelTooLow()
	}

	s.touchSession(token)
	return consumer, nil
}

// withConsumerAndUser additionally resolves the consumer's user. A consumer
// without a user is an invariant violation, reported as a server error, not
// a client one.
func (s *Server) withConsumerAndUser(r *http.Request, op string) (forum.Consumer, forum.User, *Error) {
	consumer, apiErr := s.withConsumer(r, op)
	if apiErr != nil {
		return forum.Consumer{}, forum.User{}, apiErr
	}

	user, err := s.store.FindUserByConsumer(r.Context(), consumer.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return forum.Consumer{}, forum.User{}, ErrServer("Consumer has no associated user")
		}
		return forum.Consumer{}, forum.User{}, ErrServer(err.Error())
	}
	return consumer, user, nil
}

// touchSession refreshes the session's touch_date off the request path.
// Fire-and-forget: a dropped touch never affects correctness.
func (s *Server) touchSession(token string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sessions.TouchSession(ctx, token, time.Now().UTC()); err != nil {
			s.log.WithError(err).Debug("failed to touch session")
		}
	}()
}
