// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/kjk/u"
	"github.com/sirupsen/logrus"

	"github.com/forerun-app/forerun/client"
	"github.com/forerun-app/forerun/logx"
)

// Server is the frontend server.
type Server struct {
	config      *Config
	cookieCodec *securecookie.SecureCookie
	log         *logrus.Logger
	ring        *logx.Ring

	// api is authenticated as the frontend's own level-6 consumer; calls on
	// behalf of a logged-in user go through api.WithToken(their token)
	api *client.Client

	hub       *wsHub
	templates *templateCache
}

// NewServer builds the frontend server: it authenticates the frontend's
// consumer against the API and registers this server's /callback as that
// consumer's webhook listener.
func NewServer(config *Config, cookieCodec *securecookie.SecureCookie, log *logrus.Logger, ring *logx.Ring, reloadTemplates bool) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	api, err := client.New(config.APIAddr).Authenticate(ctx, config.APIKey, config.APISecret)
	if err != nil {
		return nil, fmt.Errorf("authenticating frontend consumer: %w", err)
	}
	if err := api.ListenerRegister(ctx, config.PublicURL+"/callback"); err != nil {
		return nil, fmt.Errorf("registering webhook listener: %w", err)
	}

	s := &Server{
		config:      config,
		cookieCodec: cookieCodec,
		log:         log,
		ring:        ring,
		api:         api,
		hub:         newWsHub(log),
		templates:   newTemplateCache("tmpl", reloadTemplates),
	}
	go s.hub.run()
	return s, nil
}

// userAPI returns a client acting as the logged-in browser user, or the
// frontend's own client for guests.
func (s *Server) userAPI(cookie *SecureCookieValue) *client.Client {
	if cookie == nil {
		return s.api
	}
	return s.api.WithToken(cookie.APIToken)
}

// Handler returns the frontend router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.timed(s.handleMain)).Methods("GET")
	r.HandleFunc("/board/{id}", s.timed(s.handleBoard)).Methods("GET")
	// "/thread/new" has to be registered before "/thread/{id}"
	r.HandleFunc("/thread/new", s.timed(s.handleNewThreadForm)).Methods("GET")
	r.HandleFunc("/thread/{id}", s.timed(s.handleThread)).Methods("GET")
	r.HandleFunc("/user/{handle}", s.timed(s.handleProfile)).Methods("GET")

	r.HandleFunc("/login", s.timed(s.handleLoginForm)).Methods("GET")
	r.HandleFunc("/login", s.timed(s.handleLogin)).Methods("POST")
	r.HandleFunc("/signup", s.timed(s.handleSignupForm)).Methods("GET")
	r.HandleFunc("/signup", s.timed(s.handleSignup)).Methods("POST")
	r.HandleFunc("/logout", s.timed(s.handleLogout)).Methods("GET")

	r.HandleFunc("/newthread", s.timed(s.handleNewThread)).Methods("POST")
	r.HandleFunc("/newpost", s.timed(s.handleNewPost)).Methods("POST")

	r.HandleFunc("/callback", s.handleCallback).Methods("POST")
	r.HandleFunc("/ws", s.handleWs)
	r.HandleFunc("/feed.xml", s.timed(s.handleAtom)).Methods("GET")
	r.HandleFunc("/logs", s.timed(s.handleLogs)).Methods("GET")

	r.PathPrefix("/s/").HandlerFunc(s.handleStatic)
	return r
}

// timed logs urls that take a long time to serve.
func (s *Server) timed(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		fn(w, r)
		if duration := time.Since(startTime); duration > time.Second {
			s.log.Infof("%q took %.2f seconds to serve", r.URL.Path, duration.Seconds())
		}
	}
}

func serveFileFromDir(s *Server, w http.ResponseWriter, r *http.Request, dir, fileName string) {
	filePath := filepath.Join(dir, fileName)
	if !u.PathExists(filePath) {
		s.log.Infof("file %q doesn't exist, referer: %q", fileName, r.Header.Get("Referer"))
	}
	http.ServeFile(w, r, filePath)
}

// url: /s/*
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Path[len("/s/"):]
	serveFileFromDir(s, w, r, "static", file)
}
