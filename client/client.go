// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package client is the Go client of the Forerun API. The frontend server
// talks to the API exclusively through it. Every call sends form-encoded
// parameters, decodes the response envelope and turns a non-2xx meta into an
// *APIError.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/forerun-app/forerun/forum"
)

// APIError is a structured failure returned by the API.
type APIError struct {
	Code   int
	Type   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (%d): %s", e.Type, e.Code, e.Detail)
}

// IsErrorType reports whether err is an *APIError of the given type.
func IsErrorType(err error, errorType string) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Type == errorType
}

type meta struct {
	Code        int    `json:"code"`
	ErrorType   string `json:"error_type"`
	ErrorDetail string `json:"error_detail"`
}

type envelope struct {
	Meta     meta            `json:"meta"`
	Response json.RawMessage `json:"response"`
}

// Client calls the Forerun API at a base URL, optionally holding an
// api_token obtained from Authenticate.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithToken returns a copy of the client that sends the given api_token.
func (c *Client) WithToken(token string) *Client {
	copied := *c
	copied.token = token
	return &copied
}

// Token returns the api_token the client sends, "" when unauthenticated.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) call(ctx context.Context, method, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if c.token != "" {
		params.Set("api_token", c.token)
	}

	var req *http.Request
	var err error
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	if env.Meta.Code < 200 || env.Meta.Code > 299 {
		return &APIError{
			Code:   env.Meta.Code,
			Type:   env.Meta.ErrorType,
			Detail: env.Meta.ErrorDetail,
		}
	}
	if out != nil {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("api: decoding response: %w", err)
		}
	}
	return nil
}

// Authenticate exchanges an api_key/api_secret pair for an api_token and
// returns a client that sends it.
func (c *Client) Authenticate(ctx context.Context, apiKey, apiSecret string) (*Client, error) {
	var out struct {
		APIToken string `json:"api_token"`
	}
	params := url.Values{"api_key": {apiKey}, "api_secret": {apiSecret}}
	if err := c.call(ctx, http.MethodPost, "/authenticate", params, &out); err != nil {
		return nil, err
	}
	return c.WithToken(out.APIToken), nil
}

// Revoke deletes the client's session token.
func (c *Client) Revoke(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/revoke", nil, nil)
}

type userResponse struct {
	User        *forum.RenderedUser `json:"user"`
	AccessLevel forum.AccessLevel   `json:"access_level"`
}

// UserNew provisions a user, returning it with its consumer credentials.
func (c *Client) UserNew(ctx context.Context, handle, email, passwordMD5 string) (*forum.RenderedUser, error) {
	var out userResponse
	params := url.Values{
		"handle":       {handle},
		"email":        {email},
		"password_md5": {passwordMD5},
	}
	if err := c.call(ctx, http.MethodPost, "/user/new", params, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UserLogin checks a handle/password pair, returning the user with its
// consumer credentials.
func (c *Client) UserLogin(ctx context.Context, handle, passwordMD5 string) (*forum.RenderedUser, error) {
	var out userResponse
	params := url.Values{"handle": {handle}, "password_md5": {passwordMD5}}
	if err := c.call(ctx, http.MethodPost, "/user/login", params, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UserFind looks up a user by handle. The access level comes back alongside
// the user.
func (c *Client) UserFind(ctx context.Context, handle string) (*forum.RenderedUser, forum.AccessLevel, error) {
	var out userResponse
	params := url.Values{"handle": {handle}}
	if err := c.call(ctx, http.MethodGet, "/user/find", params, &out); err != nil {
		return nil, 0, err
	}
	return out.User, out.AccessLevel, nil
}

// UserUpdateAvatar sets a user's avatar. An empty userID means the calling
// user.
func (c *Client) UserUpdateAvatar(ctx context.Context, userID, avatarSmall string) (*forum.RenderedUser, error) {
	var out userResponse
	params := url.Values{"avatar_small": {avatarSmall}}
	if userID != "" {
		params.Set("user_id", userID)
	}
	if err := c.call(ctx, http.MethodPost, "/user/update", params, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UserUpdateAccessLevel sets another user's access level. Moderator and up.
func (c *Client) UserUpdateAccessLevel(ctx context.Context, userID string, level forum.AccessLevel) (*forum.RenderedUser, error) {
	var out userResponse
	params := url.Values{
		"user_id":      {userID},
		"access_level": {strconv.Itoa(int(level))},
	}
	if err := c.call(ctx, http.MethodPost, "/user/update", params, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type threadResponse struct {
	Thread  *forum.RenderedThread   `json:"thread"`
	Threads []*forum.RenderedThread `json:"threads"`
	Post    *forum.RenderedPost     `json:"post"`
	Posts   []*forum.RenderedPost   `json:"posts"`
}

// ThreadNew starts a thread, optionally with an initial post.
func (c *Client) ThreadNew(ctx context.Context, title, bodyMarkdown, boardID string) (*forum.RenderedThread, *forum.RenderedPost, error) {
	var out threadResponse
	params := url.Values{"title": {title}}
	if bodyMarkdown != "" {
		params.Set("body_markdown", bodyMarkdown)
	}
	if boardID != "" {
		params.Set("board_id", boardID)
	}
	if err := c.call(ctx, http.MethodPost, "/thread/new", params, &out); err != nil {
		return nil, nil, err
	}
	return out.Thread, out.Post, nil
}

// Threads lists threads, most recently active first. An empty boardID lists
// all boards.
func (c *Client) Threads(ctx context.Context, boardID string) ([]*forum.RenderedThread, error) {
	var out threadResponse
	params := url.Values{}
	if boardID != "" {
		params.Set("board_id", boardID)
	}
	if err := c.call(ctx, http.MethodGet, "/threads", params, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// ThreadGet fetches one thread with its posts, oldest first.
func (c *Client) ThreadGet(ctx context.Context, id string) (*forum.RenderedThread, []*forum.RenderedPost, error) {
	var out threadResponse
	if err := c.call(ctx, http.MethodGet, "/thread/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Thread, out.Posts, nil
}

// PostNew replies to a thread. The updated thread comes back with the post.
func (c *Client) PostNew(ctx context.Context, threadID, bodyMarkdown string) (*forum.RenderedPost, *forum.RenderedThread, error) {
	var out threadResponse
	params := url.Values{
		"thread_id":     {threadID},
		"body_markdown": {bodyMarkdown},
	}
	if err := c.call(ctx, http.MethodPost, "/post/new", params, &out); err != nil {
		return nil, nil, err
	}
	return out.Post, out.Thread, nil
}

// PostGet fetches one post.
func (c *Client) PostGet(ctx context.Context, id string) (*forum.RenderedPost, error) {
	var out threadResponse
	if err := c.call(ctx, http.MethodGet, "/post/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Post, nil
}

type boardResponse struct {
	Board   *forum.RenderedBoard    `json:"board"`
	Boards  []*forum.RenderedBoard  `json:"boards"`
	Threads []*forum.RenderedThread `json:"threads"`
}

// BoardNew creates a board.
func (c *Client) BoardNew(ctx context.Context, title, description string) (*forum.RenderedBoard, error) {
	var out boardResponse
	params := url.Values{"title": {title}}
	if description != "" {
		params.Set("description", description)
	}
	if err := c.call(ctx, http.MethodPost, "/board/new", params, &out); err != nil {
		return nil, err
	}
	return out.Board, nil
}

// Boards lists all boards.
func (c *Client) Boards(ctx context.Context) ([]*forum.RenderedBoard, error) {
	var out boardResponse
	if err := c.call(ctx, http.MethodGet, "/boards", nil, &out); err != nil {
		return nil, err
	}
	return out.Boards, nil
}

// BoardGet fetches one board with its threads.
func (c *Client) BoardGet(ctx context.Context, id string) (*forum.RenderedBoard, []*forum.RenderedThread, error) {
	var out boardResponse
	if err := c.call(ctx, http.MethodGet, "/board/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Board, out.Threads, nil
}

// ListenerRegister registers the calling consumer's webhook endpoint.
func (c *Client) ListenerRegister(ctx context.Context, endpoint string) error {
	params := url.Values{"endpoint": {endpoint}}
	return c.call(ctx, http.MethodPost, "/listener/register", params, nil)
}
