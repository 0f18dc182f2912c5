// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"net/http"
	"strconv"

	"github.com/forerun-app/forerun/forum"
)

// SecureCookieValue is what the frontend remembers about a logged-in
// browser: the API session token minted for the user's own consumer, plus
// enough display data to render pages without a lookup.
type SecureCookieValue struct {
	APIToken    string
	Handle      string
	AccessLevel forum.AccessLevel
}

func (s *Server) setSecureCookie(w http.ResponseWriter, cookieVal *SecureCookieValue) {
	val := make(map[string]string)
	val["api_token"] = cookieVal.APIToken
	val["handle"] = cookieVal.Handle
	val["access_level"] = strconv.Itoa(int(cookieVal.AccessLevel))
	if encoded, err := s.cookieCodec.Encode(cookieName, val); err == nil {
		cookie := &http.Cookie{
			Name:  cookieName,
			Value: encoded,
			Path:  "/",
		}
		http.SetCookie(w, cookie)
	} else {
		s.log.Errorf("Failed to encode cookie, error: %s", err)
	}
}

// getSecureCookie returns the decoded cookie or nil when there is none or
// it does not decode. A cookie that does not decode is also deleted, so a
// key rotation logs everyone out instead of erroring forever.
func (s *Server) getSecureCookie(w http.ResponseWriter, r *http.Request) *SecureCookieValue {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}
	val := make(map[string]string)
	if err = s.cookieCodec.Decode(cookieName, cookie.Value, &val); err != nil {
		s.log.Infof("Failed to decode cookie, error: %s", err)
		s.deleteSecureCookie(w)
		return nil
	}
	ret := &SecureCookieValue{
		APIToken: val["api_token"],
		Handle:   val["handle"],
	}
	if lvl, err := strconv.Atoi(val["access_level"]); err == nil {
		ret.AccessLevel = forum.AccessLevel(lvl)
	}
	if ret.APIToken == "" || ret.Handle == "" {
		s.deleteSecureCookie(w)
		return nil
	}
	return ret
}

func (s *Server) deleteSecureCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:   cookieName,
		Value:  "deleted",
		MaxAge: -1,
		Path:   "/",
	}
	http.SetCookie(w, cookie)
}
