// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package api implements the Forerun REST API server: the response
// envelope, the token guard and the per-resource handlers. Persistence is
// behind store.Store; webhook fan-out behind hook.Sink.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/hook"
	"github.com/forerun-app/forerun/store"
)

// Config assembles a Server.
type Config struct {
	Store store.Store
	// Sessions may point somewhere other than Store (redis); when nil the
	// primary store keeps sessions too.
	Sessions store.SessionStore
	// Hooks receives new-thread/new-post events; nil disables fan-out.
	Hooks     hook.Sink
	Log       *logrus.Logger
	TokenSalt string
}

// Server is the API server.
type Server struct {
	store    store.Store
	sessions store.SessionStore
	hooks    hook.Sink
	log      *logrus.Logger
	salt     string
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:    cfg.Store,
		sessions: cfg.Sessions,
		hooks:    cfg.Hooks,
		log:      cfg.Log,
		salt:     cfg.TokenSalt,
	}
	if s.sessions == nil {
		s.sessions = cfg.Store
	}
	if s.log == nil {
		s.log = logrus.New()
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/authenticate", s.handle(s.handleAuthenticate)).Methods("POST")
	r.HandleFunc("/revoke", s.handle(s.handleRevoke)).Methods("POST")

	r.HandleFunc("/user/new", s.handle(s.handleUserNew)).Methods("POST")
	r.HandleFunc("/user/login", s.handle(s.handleUserLogin)).Methods("POST")
	r.HandleFunc("/user/find", s.handle(s.handleUserFind)).Methods("GET")
	r.HandleFunc("/user/update", s.handle(s.handleUserUpdate)).Methods("POST")

	r.HandleFunc("/thread/new", s.handle(s.handleThreadNew)).Methods("POST")
	r.HandleFunc("/threads", s.handle(s.handleThreads)).Methods("GET")
	r.HandleFunc("/thread/{id}", s.handle(s.handleThreadGet)).Methods("GET")

	r.HandleFunc("/post/new", s.handle(s.handlePostNew)).Methods("POST")
	r.HandleFunc("/post/{id}", s.handle(s.handlePostGet)).Methods("GET")

	r.HandleFunc("/board/new", s.handle(s.handleBoardNew)).Methods("POST")
	r.HandleFunc("/boards", s.handle(s.handleBoards)).Methods("GET")
	r.HandleFunc("/board/{id}", s.handle(s.handleBoardGet)).Methods("GET")

	r.HandleFunc("/listener/register", s.handle(s.handleListenerRegister)).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, ErrNotFound(""))
	})
	return r
}

// handlerFunc is one endpoint: a success value for the envelope, or a typed
// error that short-circuits it.
type handlerFunc func(r *http.Request) (any, *Error)

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		w.Header().Set("Access-Control-Allow-Origin", "*")

		resp, apiErr := h(r)
		if apiErr != nil {
			if apiErr.Code >= 500 {
				s.log.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"error": apiErr.Message,
				}).Error("request failed")
			}
			writeError(w, apiErr)
		} else {
			writeOK(w, resp)
		}

		// log urls that take a long time to serve
		if duration := time.Since(startTime); duration > time.Second {
			s.log.Infof("%q took %.2f seconds to serve", r.URL.Path, duration.Seconds())
		}
	}
}

// requireParams checks required parameters before any store access happens,
// so a rejected request has no partial side effects.
func requireParams(r *http.Request, names ...string) *Error {
	var missing []string
	for _, name := range names {
		if r.FormValue(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return ErrInsufficientParams("Missing params: " + strings.Join(missing, ", "))
	}
	return nil
}

// EnsureConsumer creates or refreshes a consumer with a fixed key/secret
// pair, used at startup so the frontend server can always authenticate.
func (s *Server) EnsureConsumer(ctx context.Context, apiKey, apiSecret string, level forum.AccessLevel) error {
	consumer, err := s.store.FindConsumerByKey(ctx, apiKey)
	switch {
	case err == nil:
		if consumer.APISecret != apiSecret || consumer.AccessLevel != level {
			consumer.APISecret = apiSecret
			consumer.AccessLevel = level
			if _, err := s.store.UpdateConsumer(ctx, consumer); err != nil {
				return fmt.Errorf("update consumer: %w", err)
			}
			s.log.Info("updated frontend consumer")
		}
		return nil
	case errors.Is(err, store.ErrNotFound):
		_, err := s.store.CreateConsumer(ctx, forum.Consumer{
			APIKey:      apiKey,
			APISecret:   apiSecret,
			AccessLevel: level,
		})
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		s.log.Info("created frontend consumer")
		return nil
	default:
		return err
	}
}

func (s *Server) emit(event hook.Event) {
	if s.hooks != nil {
		s.hooks.Emit(event)
	}
}
