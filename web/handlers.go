// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/forerun-app/forerun/client"
	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/logx"
)

// pageModel is what every template gets. Pages embed it and add their own
// fields.
type pageModel struct {
	IsLoggedIn    bool
	Handle        string
	IsAdmin       bool
	AnalyticsCode string
	ErrorMsg      string
}

func (s *Server) newPageModel(cookie *SecureCookieValue) pageModel {
	m := pageModel{AnalyticsCode: s.config.AnalyticsCode}
	if cookie != nil {
		m.IsLoggedIn = true
		m.Handle = cookie.Handle
		m.IsAdmin = cookie.AccessLevel >= forum.SystemAdmin
	}
	return m
}

func passwordMD5(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// url: /
func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	api := s.userAPI(cookie)

	boards, err := api.Boards(r.Context())
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}
	threads, err := api.Threads(r.Context(), "")
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}

	model := struct {
		pageModel
		Boards  []*forum.RenderedBoard
		Threads []*forum.RenderedThread
	}{
		pageModel: s.newPageModel(cookie),
		Boards:    boards,
		Threads:   threads,
	}
	s.execTemplate(w, tmplMain, model)
}

// url: /board/{id}
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	api := s.userAPI(cookie)

	board, threads, err := api.BoardGet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}

	model := struct {
		pageModel
		Board   *forum.RenderedBoard
		Threads []*forum.RenderedThread
	}{
		pageModel: s.newPageModel(cookie),
		Board:     board,
		Threads:   threads,
	}
	s.execTemplate(w, tmplBoard, model)
}

// url: /thread/{id}
func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	api := s.userAPI(cookie)

	thread, posts, err := api.ThreadGet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}

	model := struct {
		pageModel
		Thread *forum.RenderedThread
		Posts  []*forum.RenderedPost
	}{
		pageModel: s.newPageModel(cookie),
		Thread:    thread,
		Posts:     posts,
	}
	s.execTemplate(w, tmplThread, model)
}

// url: /user/{handle}
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	api := s.userAPI(cookie)

	user, accessLevel, err := api.UserFind(r.Context(), mux.Vars(r)["handle"])
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}

	model := struct {
		pageModel
		User        *forum.RenderedUser
		AccessLevel forum.AccessLevel
		IsSelf      bool
	}{
		pageModel:   s.newPageModel(cookie),
		User:        user,
		AccessLevel: accessLevel,
		IsSelf:      cookie != nil && cookie.Handle == user.Handle,
	}
	s.execTemplate(w, tmplProfile, model)
}

// url: GET /login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	if cookie != nil {
		http.Redirect(w, r, "/", 302)
		return
	}
	s.execTemplate(w, tmplLogin, s.newPageModel(nil))
}

// url: POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(r.FormValue("handle"))
	password := r.FormValue("password")
	if handle == "" || password == "" {
		s.loginFailed(w, "Handle and password are required")
		return
	}

	user, err := s.api.UserLogin(r.Context(), handle, passwordMD5(password))
	if err != nil {
		if client.IsErrorType(err, "login_failed") {
			s.loginFailed(w, err.(*client.APIError).Detail)
			return
		}
		s.serveAPIError(w, r, err)
		return
	}
	s.startBrowserSession(w, r, user)
}

func (s *Server) loginFailed(w http.ResponseWriter, msg string) {
	model := s.newPageModel(nil)
	model.ErrorMsg = msg
	s.execTemplate(w, tmplLogin, model)
}

// url: GET /signup
func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	if cookie != nil {
		http.Redirect(w, r, "/", 302)
		return
	}
	s.execTemplate(w, tmplSignup, s.newPageModel(nil))
}

// url: POST /signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(r.FormValue("handle"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if handle == "" || email == "" || password == "" {
		s.signupFailed(w, "Handle, email and password are required")
		return
	}

	user, err := s.api.UserNew(r.Context(), handle, email, passwordMD5(password))
	if err != nil {
		if apiErr, ok := err.(*client.APIError); ok && apiErr.Code < 500 {
			s.signupFailed(w, apiErr.Detail)
			return
		}
		s.serveAPIError(w, r, err)
		return
	}
	s.startBrowserSession(w, r, user)
}

func (s *Server) signupFailed(w http.ResponseWriter, msg string) {
	model := s.newPageModel(nil)
	model.ErrorMsg = msg
	s.execTemplate(w, tmplSignup, model)
}

// startBrowserSession authenticates as the user's own consumer and remembers
// the resulting token in the cookie. user must carry consumer credentials,
// which only /user/new and /user/login responses do.
func (s *Server) startBrowserSession(w http.ResponseWriter, r *http.Request, user *forum.RenderedUser) {
	if user == nil || user.Consumer == nil {
		s.log.Error("login response carried no consumer credentials")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	userClient, err := client.New(s.config.APIAddr).Authenticate(r.Context(), user.Consumer.APIKey, user.Consumer.APISecret)
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}
	s.setSecureCookie(w, &SecureCookieValue{
		APIToken:    userClient.Token(),
		Handle:      user.Handle,
		AccessLevel: user.Consumer.AccessLevel,
	})
	http.Redirect(w, r, "/", 302)
}

// url: /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie := s.getSecureCookie(w, r); cookie != nil {
		// best effort; the cookie is gone either way
		if err := s.api.WithToken(cookie.APIToken).Revoke(r.Context()); err != nil {
			s.log.Infof("failed to revoke token on logout: %s", err)
		}
	}
	s.deleteSecureCookie(w)
	http.Redirect(w, r, "/", 302)
}

// url: GET /thread/new
func (s *Server) handleNewThreadForm(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	if cookie == nil {
		http.Redirect(w, r, "/login", 302)
		return
	}
	boards, err := s.userAPI(cookie).Boards(r.Context())
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}
	model := struct {
		pageModel
		Boards []*forum.RenderedBoard
	}{
		pageModel: s.newPageModel(cookie),
		Boards:    boards,
	}
	s.execTemplate(w, tmplNewThread, model)
}

// url: POST /newthread
func (s *Server) handleNewThread(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	if cookie == nil {
		http.Redirect(w, r, "/login", 302)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	body := r.FormValue("body")
	boardID := r.FormValue("board_id")

	thread, _, err := s.userAPI(cookie).ThreadNew(r.Context(), title, body, boardID)
	if err != nil {
		s.serveAPIError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/thread/%s", thread.ID), 302)
}

// url: POST /newpost
func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	if cookie == nil {
		http.Redirect(w, r, "/login", 302)
		return
	}
	threadID := r.FormValue("thread_id")
	body := r.FormValue("body")

	if _, _, err := s.userAPI(cookie).PostNew(r.Context(), threadID, body); err != nil {
		s.serveAPIError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/thread/%s", threadID), 302)
}

// url: /logs
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	cookie := s.getSecureCookie(w, r)
	if cookie == nil || cookie.AccessLevel < forum.SystemAdmin {
		http.Redirect(w, r, "/", 302)
		return
	}
	model := struct {
		pageModel
		Errors  []*logx.TimestampedMsg
		Notices []*logx.TimestampedMsg
	}{
		pageModel: s.newPageModel(cookie),
		Errors:    s.ring.Errors(),
		Notices:   s.ring.Notices(),
	}
	s.execTemplate(w, tmplLogs, model)
}

// serveAPIError maps API failures to browser responses. An expired or
// revoked token drops the cookie and asks the user to log in again.
func (s *Server) serveAPIError(w http.ResponseWriter, r *http.Request, err error) {
	if client.IsErrorType(err, "invalid_token") {
		s.deleteSecureCookie(w)
		http.Redirect(w, r, "/login", 302)
		return
	}
	if client.IsErrorType(err, "not_found") {
		http.NotFound(w, r)
		return
	}
	s.log.Errorf("api call failed: %s, referer: %q", err, r.Header.Get("Referer"))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
