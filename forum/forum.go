// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package forum holds the records Forerun persists and the JSON shapes the
// API renders them as. A Consumer is an API credential principal; a User is
// a person owning exactly one Consumer. Sessions bind live API tokens to
// Consumers, Listeners are webhook endpoints registered by Consumers.
package forum

import (
	"regexp"
	"time"
)

// AccessLevel is an integer authorization tier. Higher is strictly more
// privileged. Endpoint requirements live in the api package's policy table,
// not inline at call sites.
type AccessLevel int

const (
	// Member is any signed-in consumer.
	Member AccessLevel = 0
	// ListenerAdmin may register webhook listeners.
	ListenerAdmin AccessLevel = 2
	// Moderator may edit other users' avatars and access levels.
	Moderator AccessLevel = 3
	// SystemAdmin may provision users and log in on their behalf. The
	// frontend server's consumer runs at this level.
	SystemAdmin AccessLevel = 6
)

// User describes a registered person. The raw password never reaches the
// server: clients send its md5, the server stores md5(salt + password_md5).
type User struct {
	ID                string
	Handle            string
	Email             string
	Salt              string
	SaltedPasswordMD5 string
	JoinDate          time.Time
	AvatarSmall       string
	Settings          Settings
	ConsumerID        string
}

// Settings are per-user preferences.
type Settings struct {
	HideImagesByDefault bool
}

// Consumer describes an API credential pair with an access level. A consumer
// need not own a user.
type Consumer struct {
	ID          string
	APIKey      string
	APISecret   string
	AccessLevel AccessLevel
}

// Session binds an API token to a consumer. Sessions have no TTL; they live
// until revoked. TouchDate is refreshed best-effort on every authorized
// request.
type Session struct {
	APIToken   string
	ConsumerID string
	TouchDate  time.Time
}

// Board groups threads.
type Board struct {
	ID          string
	Title       string
	Description string
	UserHandle  string
	UserID      string
}

// Thread describes a discussion. ReplyCount, LastPostAuthor and LastPostDate
// are denormalized from the thread's posts and recomputed after each new
// post.
type Thread struct {
	ID             string
	Title          string
	UserHandle     string
	UserID         string
	BoardID        string
	ReplyCount     int
	LastPostAuthor string
	LastPostDate   time.Time
}

// Post is a single message within a thread. The body is stored as HTML;
// markdown conversion happens once, at creation.
type Post struct {
	ID         string
	BodyHTML   string
	UserHandle string
	UserID     string
	ThreadID   string
	CreatedAt  time.Time
}

// Listener is a webhook endpoint owned by a consumer. One per consumer;
// re-registering replaces the endpoint.
type Listener struct {
	ConsumerID string
	Endpoint   string
}

var (
	handleRegex = regexp.MustCompile(`^\w+$`)
	emailRegex  = regexp.MustCompile(`^\w(\w|\+|\.)*@[a-zA-Z_]+?\.[a-zA-Z]{2,3}$`)
)

// ValidHandle reports whether handle contains only letters, numbers and
// underscores.
func ValidHandle(handle string) bool {
	return handleRegex.MatchString(handle)
}

// ValidEmail reports whether email looks like an email address.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidThreadTitle reports whether title length is in (0,100].
func ValidThreadTitle(title string) bool {
	return len(title) > 0 && len(title) <= 100
}
