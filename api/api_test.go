// This code is in Public Domain. Take all the code you want, I'll just write more.
package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forerun-app/forerun/api"
	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/hook"
	"github.com/forerun-app/forerun/store"
)

const (
	frontendKey    = "frontend-key"
	frontendSecret = "frontend-secret"
)

// captureSink records emitted hook events instead of delivering them.
type captureSink struct {
	mu     sync.Mutex
	events []hook.Event
}

func (c *captureSink) Emit(event hook.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) all() []hook.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hook.Event(nil), c.events...)
}

type testEnv struct {
	t     *testing.T
	store *store.MemStore
	sink  *captureSink
	srv   *httptest.Server

	// the frontend consumer's session token
	frontendToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		t:     t,
		store: store.NewMemStore(),
		sink:  &captureSink{},
	}
	server := api.NewServer(api.Config{
		Store:     env.store,
		Hooks:     env.sink,
		Log:       log,
		TokenSalt: "test-salt",
	})
	require.NoError(t, server.EnsureConsumer(context.Background(), frontendKey, frontendSecret, forum.SystemAdmin))

	env.srv = httptest.NewServer(server.Handler())
	t.Cleanup(env.srv.Close)

	env.frontendToken = env.authenticate(frontendKey, frontendSecret)
	return env
}

type meta struct {
	Code        int    `json:"code"`
	ErrorType   string `json:"error_type"`
	ErrorDetail string `json:"error_detail"`
	ParamErrors []struct {
		Param   string `json:"param"`
		Message string `json:"message"`
	} `json:"paramErrors"`
}

type envelope struct {
	Meta     meta            `json:"meta"`
	Response json.RawMessage `json:"response"`
}

func (e *testEnv) post(path string, params url.Values) (int, envelope) {
	e.t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader(params.Encode()))
	require.NoError(e.t, err)
	return e.decode(resp)
}

func (e *testEnv) get(path string, params url.Values) (int, envelope) {
	e.t.Helper()
	resp, err := http.Get(e.srv.URL + path + "?" + params.Encode())
	require.NoError(e.t, err)
	return e.decode(resp)
}

func (e *testEnv) decode(resp *http.Response) (int, envelope) {
	e.t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&env))
	// the http status always mirrors meta.code
	assert.Equal(e.t, resp.StatusCode, env.Meta.Code)
	return resp.StatusCode, env
}

func (e *testEnv) unmarshal(raw json.RawMessage, out any) {
	e.t.Helper()
	require.NoError(e.t, json.Unmarshal(raw, out))
}

func (e *testEnv) authenticate(apiKey, apiSecret string) string {
	e.t.Helper()
	code, env := e.post("/authenticate", url.Values{
		"api_key":    {apiKey},
		"api_secret": {apiSecret},
	})
	require.Equal(e.t, http.StatusOK, code)
	var out struct {
		APIToken string `json:"api_token"`
	}
	e.unmarshal(env.Response, &out)
	require.NotEmpty(e.t, out.APIToken)
	return out.APIToken
}

type userJSON struct {
	ID          string `json:"_id"`
	Handle      string `json:"handle"`
	Email       string `json:"email"`
	JoinDate    int64  `json:"join_date"`
	AvatarSmall string `json:"avatar_small"`
	Consumer    *struct {
		APIKey      string `json:"api_key"`
		APISecret   string `json:"api_secret"`
		AccessLevel int    `json:"access_level"`
	} `json:"consumer"`
	Settings *struct {
		HideImagesByDefault bool `json:"hide_images_by_default"`
	} `json:"settings"`
}

type threadJSON struct {
	ID         string `json:"_id"`
	Title      string `json:"title"`
	UserHandle string `json:"user_handle"`
	BoardID    string `json:"board_id"`
	ReplyCount int    `json:"reply_count"`
	LastPost   *struct {
		Author string `json:"author"`
		Date   int64  `json:"date"`
	} `json:"last_post"`
}

type postJSON struct {
	ID         string `json:"_id"`
	BodyHTML   string `json:"body_html"`
	UserHandle string `json:"user_handle"`
	ThreadID   string `json:"thread_id"`
}

// signup provisions a user through /user/new and logs its consumer in,
// returning the user and a live token. accessLevel "" means member.
func (e *testEnv) signup(handle, accessLevel string) (userJSON, string) {
	e.t.Helper()
	params := url.Values{
		"api_token":    {e.frontendToken},
		"handle":       {handle},
		"email":        {handle + "@example.com"},
		"password_md5": {"0123456789abcdef0123456789abcdef"},
	}
	if accessLevel != "" {
		params.Set("access_level", accessLevel)
	}
	code, env := e.post("/user/new", params)
	require.Equal(e.t, http.StatusOK, code, "signup of %q: %+v", handle, env.Meta)

	var out struct {
		User userJSON `json:"user"`
	}
	e.unmarshal(env.Response, &out)
	require.NotNil(e.t, out.User.Consumer)
	token := e.authenticate(out.User.Consumer.APIKey, out.User.Consumer.APISecret)
	return out.User, token
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("wrong secret", func(t *testing.T) {
		code, resp := env.post("/authenticate", url.Values{
			"api_key":    {frontendKey},
			"api_secret": {"nope"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "auth_failed", resp.Meta.ErrorType)
	})

	t.Run("unknown key", func(t *testing.T) {
		code, resp := env.post("/authenticate", url.Values{
			"api_key":    {"who"},
			"api_secret": {"cares"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "auth_failed", resp.Meta.ErrorType)
	})

	t.Run("missing params", func(t *testing.T) {
		code, resp := env.post("/authenticate", url.Values{"api_key": {frontendKey}})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "insufficient_params", resp.Meta.ErrorType)
		assert.Contains(t, resp.Meta.ErrorDetail, "api_secret")
	})

	t.Run("two sessions for one consumer", func(t *testing.T) {
		a := env.authenticate(frontendKey, frontendSecret)
		b := env.authenticate(frontendKey, frontendSecret)
		// both stay valid independently
		code, _ := env.get("/boards", url.Values{"api_token": {a}})
		assert.Equal(t, http.StatusOK, code)
		code, _ = env.get("/boards", url.Values{"api_token": {b}})
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestRevoke(t *testing.T) {
	env := newTestEnv(t)
	token := env.authenticate(frontendKey, frontendSecret)

	code, _ := env.get("/boards", url.Values{"api_token": {token}})
	require.Equal(t, http.StatusOK, code)

	code, _ = env.post("/revoke", url.Values{"api_token": {token}})
	require.Equal(t, http.StatusOK, code)

	// the token is dead immediately
	code, resp := env.get("/boards", url.Values{"api_token": {token}})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "invalid_token", resp.Meta.ErrorType)

	// revoking again still succeeds
	code, _ = env.post("/revoke", url.Values{"api_token": {token}})
	assert.Equal(t, http.StatusOK, code)
}

func TestGuard(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no token", func(t *testing.T) {
		code, resp := env.get("/boards", nil)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "invalid_token", resp.Meta.ErrorType)
	})

	t.Run("garbage token", func(t *testing.T) {
		code, resp := env.get("/boards", url.Values{"api_token": {"bogus"}})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "invalid_token", resp.Meta.ErrorType)
	})

	t.Run("member cannot provision users", func(t *testing.T) {
		_, memberToken := env.signup("guardmember", "")
		code, resp := env.post("/user/new", url.Values{
			"api_token":    {memberToken},
			"handle":       {"sneaky"},
			"email":        {"sneaky@example.com"},
			"password_md5": {"0123456789abcdef0123456789abcdef"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "not_authorized", resp.Meta.ErrorType)
		assert.Equal(t, "Requires a higher access level", resp.Meta.ErrorDetail)
	})

	t.Run("member cannot register listeners", func(t *testing.T) {
		_, memberToken := env.signup("guardmember2", "")
		code, resp := env.post("/listener/register", url.Values{
			"api_token": {memberToken},
			"endpoint":  {"http://example.com/cb"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "not_authorized", resp.Meta.ErrorType)
	})

	t.Run("consumer without a user", func(t *testing.T) {
		// the frontend consumer owns no user record, so user-requiring
		// operations fail as an invariant violation, not a client error
		code, resp := env.get("/user/find", url.Values{
			"api_token": {env.frontendToken},
			"handle":    {"anyone"},
		})
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "server_error", resp.Meta.ErrorType)
		assert.Equal(t, "Consumer has no associated user", resp.Meta.ErrorDetail)
	})

	t.Run("session whose consumer is gone", func(t *testing.T) {
		_, err := env.store.CreateSession(context.Background(), forum.Session{
			APIToken:   "dangling-token",
			ConsumerID: "no-such-consumer",
		})
		require.NoError(t, err)

		// reads the same as a bad token
		code, resp := env.get("/boards", url.Values{"api_token": {"dangling-token"}})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "invalid_token", resp.Meta.ErrorType)
	})

	t.Run("unknown route", func(t *testing.T) {
		code, resp := env.get("/nope", nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "not_found", resp.Meta.ErrorType)
	})
}

func TestUserNew(t *testing.T) {
	env := newTestEnv(t)

	t.Run("basic signup", func(t *testing.T) {
		user, token := env.signup("johnny", "")
		assert.Equal(t, "johnny", user.Handle)
		assert.Equal(t, "johnny@example.com", user.Email)
		assert.NotZero(t, user.JoinDate)
		assert.Equal(t, 0, user.Consumer.AccessLevel)
		assert.NotEmpty(t, token)
	})

	t.Run("access level is clamped to the caller's", func(t *testing.T) {
		user, _ := env.signup("wannabe", "9")
		assert.Equal(t, int(forum.SystemAdmin), user.Consumer.AccessLevel)

		user, _ = env.signup("moddy", "3")
		assert.Equal(t, int(forum.Moderator), user.Consumer.AccessLevel)
	})

	t.Run("handle collision is case-insensitive", func(t *testing.T) {
		code, resp := env.post("/user/new", url.Values{
			"api_token":    {env.frontendToken},
			"handle":       {"JOHNNY"},
			"email":        {"other@example.com"},
			"password_md5": {"0123456789abcdef0123456789abcdef"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "handle_taken", resp.Meta.ErrorType)
	})

	t.Run("validation failures list each bad param", func(t *testing.T) {
		code, resp := env.post("/user/new", url.Values{
			"api_token":    {env.frontendToken},
			"handle":       {"bad handle!"},
			"email":        {"not-an-email"},
			"password_md5": {"0123456789abcdef0123456789abcdef"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "param_error", resp.Meta.ErrorType)
		require.Len(t, resp.Meta.ParamErrors, 2)
		assert.Equal(t, "handle", resp.Meta.ParamErrors[0].Param)
		assert.Equal(t, "email", resp.Meta.ParamErrors[1].Param)

		// nothing was created
		_, err := env.store.FindUserByHandleFold(context.Background(), "bad handle!")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("non-numeric access level", func(t *testing.T) {
		code, resp := env.post("/user/new", url.Values{
			"api_token":    {env.frontendToken},
			"handle":       {"numerically"},
			"email":        {"numerically@example.com"},
			"password_md5": {"0123456789abcdef0123456789abcdef"},
			"access_level": {"banana"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "param_error", resp.Meta.ErrorType)
		require.Len(t, resp.Meta.ParamErrors, 1)
		assert.Equal(t, "access_level", resp.Meta.ParamErrors[0].Param)

		_, err := env.store.FindUserByHandleFold(context.Background(), "numerically")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestEnsureConsumerRefreshes(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()

	// a stale record from an earlier deploy: wrong secret, wrong level
	_, err := st.CreateConsumer(ctx, forum.Consumer{
		APIKey:      frontendKey,
		APISecret:   "stale-secret",
		AccessLevel: forum.Member,
	})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	server := api.NewServer(api.Config{Store: st, Log: log, TokenSalt: "test-salt"})
	require.NoError(t, server.EnsureConsumer(ctx, frontendKey, frontendSecret, forum.SystemAdmin))

	c, err := st.FindConsumerByKey(ctx, frontendKey)
	require.NoError(t, err)
	assert.Equal(t, frontendSecret, c.APISecret)
	assert.Equal(t, forum.SystemAdmin, c.AccessLevel)
}

func TestUserLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup("logan", "")

	t.Run("success returns consumer credentials", func(t *testing.T) {
		code, resp := env.post("/user/login", url.Values{
			"api_token":    {env.frontendToken},
			"handle":       {"logan"},
			"password_md5": {"0123456789abcdef0123456789abcdef"},
		})
		require.Equal(t, http.StatusOK, code)
		var out struct {
			User userJSON `json:"user"`
		}
		env.unmarshal(resp.Response, &out)
		require.NotNil(t, out.User.Consumer)
		assert.NotEmpty(t, out.User.Consumer.APIKey)
		assert.NotEmpty(t, out.User.Consumer.APISecret)
	})

	t.Run("wrong password", func(t *testing.T) {
		code, resp := env.post("/user/login", url.Values{
			"api_token":    {env.frontendToken},
			"handle":       {"logan"},
			"password_md5": {"ffffffffffffffffffffffffffffffff"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "login_failed", resp.Meta.ErrorType)
		assert.Equal(t, "The password was incorrect", resp.Meta.ErrorDetail)
	})

	t.Run("unknown handle", func(t *testing.T) {
		code, resp := env.post("/user/login", url.Values{
			"api_token":    {env.frontendToken},
			"handle":       {"ghost"},
			"password_md5": {"0123456789abcdef0123456789abcdef"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "login_failed", resp.Meta.ErrorType)
		assert.Equal(t, "That user does not exist", resp.Meta.ErrorDetail)
	})
}

func TestUserFind(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice", "")
	_, bobToken := env.signup("bob", "")

	t.Run("self includes settings, never credentials", func(t *testing.T) {
		code, resp := env.get("/user/find", url.Values{
			"api_token": {bobToken},
			"handle":    {"bob"},
		})
		require.Equal(t, http.StatusOK, code)
		var out struct {
			User        userJSON `json:"user"`
			AccessLevel int      `json:"access_level"`
		}
		env.unmarshal(resp.Response, &out)
		assert.NotNil(t, out.User.Settings)
		assert.Nil(t, out.User.Consumer)
		assert.Equal(t, 0, out.AccessLevel)
	})

	t.Run("someone else has no settings", func(t *testing.T) {
		code, resp := env.get("/user/find", url.Values{
			"api_token": {bobToken},
			"handle":    {"alice"},
		})
		require.Equal(t, http.StatusOK, code)
		var out struct {
			User userJSON `json:"user"`
		}
		env.unmarshal(resp.Response, &out)
		assert.Nil(t, out.User.Settings)
		assert.Nil(t, out.User.Consumer)
	})

	t.Run("unknown handle", func(t *testing.T) {
		code, resp := env.get("/user/find", url.Values{
			"api_token": {bobToken},
			"handle":    {"ghost"},
		})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "not_found", resp.Meta.ErrorType)
		assert.Equal(t, "User not found", resp.Meta.ErrorDetail)
	})
}

func TestUserUpdate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("member can set own avatar", func(t *testing.T) {
		_, token := env.signup("selfie", "")
		code, resp := env.post("/user/update", url.Values{
			"api_token":    {token},
			"avatar_small": {"http://example.com/a.png"},
		})
		require.Equal(t, http.StatusOK, code)
		var out struct {
			User userJSON `json:"user"`
		}
		env.unmarshal(resp.Response, &out)
		assert.Equal(t, "http://example.com/a.png", out.User.AvatarSmall)
	})

	t.Run("member cannot touch another user", func(t *testing.T) {
		victim, _ := env.signup("victim", "")
		_, token := env.signup("lowly", "")
		code, resp := env.post("/user/update", url.Values{
			"api_token":    {token},
			"user_id":      {victim.ID},
			"avatar_small": {"http://example.com/troll.png"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "not_authorized", resp.Meta.ErrorType)
		assert.Equal(t, "You can't make those changes", resp.Meta.ErrorDetail)
	})

	t.Run("member cannot raise own access level", func(t *testing.T) {
		_, token := env.signup("climber", "")
		code, resp := env.post("/user/update", url.Values{
			"api_token":    {token},
			"access_level": {"6"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "not_authorized", resp.Meta.ErrorType)
	})

	t.Run("moderator can promote up to own level", func(t *testing.T) {
		target, _ := env.signup("promotee", "")
		_, modToken := env.signup("moderator", "3")

		code, _ := env.post("/user/update", url.Values{
			"api_token":    {modToken},
			"user_id":      {target.ID},
			"access_level": {"2"},
		})
		require.Equal(t, http.StatusOK, code)

		_, resp := env.get("/user/find", url.Values{
			"api_token": {modToken},
			"handle":    {"promotee"},
		})
		var out struct {
			AccessLevel int `json:"access_level"`
		}
		env.unmarshal(resp.Response, &out)
		assert.Equal(t, int(forum.ListenerAdmin), out.AccessLevel)
	})

	t.Run("moderator cannot promote past own level", func(t *testing.T) {
		target, _ := env.signup("promotee2", "")
		_, modToken := env.signup("moderator2", "3")
		code, resp := env.post("/user/update", url.Values{
			"api_token":    {modToken},
			"user_id":      {target.ID},
			"access_level": {"6"},
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "not_authorized", resp.Meta.ErrorType)
	})

	t.Run("non-numeric access level", func(t *testing.T) {
		_, modToken := env.signup("moderator4", "3")
		code, resp := env.post("/user/update", url.Values{
			"api_token":    {modToken},
			"access_level": {"banana"},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "param_error", resp.Meta.ErrorType)
		require.Len(t, resp.Meta.ParamErrors, 1)
		assert.Equal(t, "access_level", resp.Meta.ParamErrors[0].Param)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, modToken := env.signup("moderator3", "3")
		code, resp := env.post("/user/update", url.Values{
			"api_token":    {modToken},
			"user_id":      {"12345"},
			"avatar_small": {"x"},
		})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "That user doesn't exist", resp.Meta.ErrorDetail)
	})
}

func TestThreadAndPostFlow(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signup("alice", "")
	_, bobToken := env.signup("bob", "")

	// alice starts a thread with an initial post
	code, resp := env.post("/thread/new", url.Values{
		"api_token":     {aliceToken},
		"title":         {"Hello world"},
		"body_markdown": {"**first**"},
	})
	require.Equal(t, http.StatusOK, code)
	var created struct {
		Thread threadJSON `json:"thread"`
		Post   *postJSON  `json:"post"`
	}
	env.unmarshal(resp.Response, &created)
	assert.Equal(t, "Hello world", created.Thread.Title)
	assert.Equal(t, 1, created.Thread.ReplyCount)
	require.NotNil(t, created.Thread.LastPost)
	assert.Equal(t, "alice", created.Thread.LastPost.Author)
	require.NotNil(t, created.Post)
	assert.Contains(t, created.Post.BodyHTML, "<strong>first</strong>")

	threadID := created.Thread.ID

	// bob replies three times; the reply count follows the posts
	for i := 0; i < 3; i++ {
		code, resp = env.post("/post/new", url.Values{
			"api_token":     {bobToken},
			"thread_id":     {threadID},
			"body_markdown": {"reply"},
		})
		require.Equal(t, http.StatusOK, code)
	}
	var afterReply struct {
		Post   postJSON   `json:"post"`
		Thread threadJSON `json:"thread"`
	}
	env.unmarshal(resp.Response, &afterReply)
	assert.Equal(t, 4, afterReply.Thread.ReplyCount)
	assert.Equal(t, "bob", afterReply.Thread.LastPost.Author)

	// thread page lists posts oldest first
	code, resp = env.get("/thread/"+threadID, url.Values{"api_token": {aliceToken}})
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Thread threadJSON `json:"thread"`
		Posts  []postJSON `json:"posts"`
	}
	env.unmarshal(resp.Response, &page)
	require.Len(t, page.Posts, 4)
	assert.Equal(t, "alice", page.Posts[0].UserHandle)
	assert.Equal(t, "bob", page.Posts[3].UserHandle)

	t.Run("missing params have no side effects", func(t *testing.T) {
		before, err := env.store.CountPostsByThread(context.Background(), threadID)
		require.NoError(t, err)

		code, resp := env.post("/post/new", url.Values{
			"api_token": {bobToken},
			"thread_id": {threadID},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "insufficient_params", resp.Meta.ErrorType)
		assert.Contains(t, resp.Meta.ErrorDetail, "body_markdown")

		after, err := env.store.CountPostsByThread(context.Background(), threadID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("posting to a missing thread", func(t *testing.T) {
		code, resp := env.post("/post/new", url.Values{
			"api_token":     {bobToken},
			"thread_id":     {"99999"},
			"body_markdown": {"hello?"},
		})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Can't post to a nonexistent thread", resp.Meta.ErrorDetail)
	})

	t.Run("thread listing orders by activity", func(t *testing.T) {
		code, resp := env.post("/thread/new", url.Values{
			"api_token": {bobToken},
			"title":     {"Newer thread"},
		})
		require.Equal(t, http.StatusOK, code)

		code, resp = env.get("/threads", url.Values{"api_token": {aliceToken}})
		require.Equal(t, http.StatusOK, code)
		var listing struct {
			Threads []threadJSON `json:"threads"`
		}
		env.unmarshal(resp.Response, &listing)
		require.NotEmpty(t, listing.Threads)
		assert.Equal(t, "Newer thread", listing.Threads[0].Title)
	})

	t.Run("title validation", func(t *testing.T) {
		code, resp := env.post("/thread/new", url.Values{
			"api_token": {aliceToken},
			"title":     {strings.Repeat("x", 101)},
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "param_error", resp.Meta.ErrorType)
	})

	t.Run("events were emitted", func(t *testing.T) {
		events := env.sink.all()
		var newThreads, newPosts int
		for _, ev := range events {
			switch ev.Type {
			case hook.EventNewThread:
				newThreads++
			case hook.EventNewPost:
				newPosts++
			}
		}
		assert.Equal(t, 2, newThreads)
		assert.Equal(t, 3, newPosts)
	})
}

func TestBoards(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("boardmaker", "")

	code, resp := env.post("/board/new", url.Values{
		"api_token":   {token},
		"title":       {"General"},
		"description": {"Anything goes"},
	})
	require.Equal(t, http.StatusOK, code)
	var created struct {
		Board struct {
			ID    string `json:"_id"`
			Title string `json:"title"`
		} `json:"board"`
	}
	env.unmarshal(resp.Response, &created)
	boardID := created.Board.ID

	// a thread filed under the board
	code, _ = env.post("/thread/new", url.Values{
		"api_token": {token},
		"title":     {"On the board"},
		"board_id":  {boardID},
	})
	require.Equal(t, http.StatusOK, code)

	// and one not on it
	code, _ = env.post("/thread/new", url.Values{
		"api_token": {token},
		"title":     {"Off the board"},
	})
	require.Equal(t, http.StatusOK, code)

	code, resp = env.get("/board/"+boardID, url.Values{"api_token": {token}})
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Board struct {
			Title string `json:"title"`
		} `json:"board"`
		Threads []threadJSON `json:"threads"`
	}
	env.unmarshal(resp.Response, &page)
	assert.Equal(t, "General", page.Board.Title)
	require.Len(t, page.Threads, 1)
	assert.Equal(t, "On the board", page.Threads[0].Title)

	t.Run("thread on a missing board", func(t *testing.T) {
		code, resp := env.post("/thread/new", url.Values{
			"api_token": {token},
			"title":     {"Lost"},
			"board_id":  {"99999"},
		})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "That board wasn't found", resp.Meta.ErrorDetail)
	})

	t.Run("boards listing", func(t *testing.T) {
		code, resp := env.get("/boards", url.Values{"api_token": {token}})
		require.Equal(t, http.StatusOK, code)
		var out struct {
			Boards []struct {
				Title string `json:"title"`
			} `json:"boards"`
		}
		env.unmarshal(resp.Response, &out)
		require.Len(t, out.Boards, 1)
	})
}

func TestListenerRegister(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signup("hooker", "2")

	code, _ := env.post("/listener/register", url.Values{
		"api_token": {token},
		"endpoint":  {"http://example.com/cb"},
	})
	require.Equal(t, http.StatusOK, code)

	listeners, err := env.store.ListListeners(context.Background())
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	assert.Equal(t, "http://example.com/cb", listeners[0].Endpoint)

	// re-registering replaces, not duplicates
	code, _ = env.post("/listener/register", url.Values{
		"api_token": {token},
		"endpoint":  {"http://example.com/cb2"},
	})
	require.Equal(t, http.StatusOK, code)

	listeners, err = env.store.ListListeners(context.Background())
	require.NoError(t, err)
	require.Len(t, listeners, 1)
	assert.Equal(t, "http://example.com/cb2", listeners[0].Endpoint)
}
