// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package store defines the persistence interfaces of Forerun and an
// in-memory implementation of them. The interfaces expose exactly the
// queries the handlers need -- named lookups with fixed sort orders, not a
// generic query engine.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/forerun-app/forerun/forum"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("store: not found")

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, u forum.User) (forum.User, error)
	UpdateUser(ctx context.Context, u forum.User) (forum.User, error)
	GetUser(ctx context.Context, id string) (forum.User, error)
	// FindUserByHandle is an exact, case-sensitive lookup.
	FindUserByHandle(ctx context.Context, handle string) (forum.User, error)
	// FindUserByHandleFold matches the handle case-insensitively. Used for
	// the signup collision check.
	FindUserByHandleFold(ctx context.Context, handle string) (forum.User, error)
	FindUserByConsumer(ctx context.Context, consumerID string) (forum.User, error)
}

// ConsumerStore persists API credential records.
type ConsumerStore interface {
	CreateConsumer(ctx context.Context, c forum.Consumer) (forum.Consumer, error)
	UpdateConsumer(ctx context.Context, c forum.Consumer) (forum.Consumer, error)
	GetConsumer(ctx context.Context, id string) (forum.Consumer, error)
	FindConsumerByKey(ctx context.Context, apiKey string) (forum.Consumer, error)
}

// SessionStore persists live API tokens. Deleting an absent token is not an
// error; touching one is best-effort.
type SessionStore interface {
	CreateSession(ctx context.Context, s forum.Session) (forum.Session, error)
	FindSessionByToken(ctx context.Context, token string) (forum.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
	TouchSession(ctx context.Context, token string, now time.Time) error
}

// BoardStore persists boards.
type BoardStore interface {
	CreateBoard(ctx context.Context, b forum.Board) (forum.Board, error)
	GetBoard(ctx context.Context, id string) (forum.Board, error)
	ListBoards(ctx context.Context) ([]forum.Board, error)
}

// ThreadStore persists threads.
type ThreadStore interface {
	CreateThread(ctx context.Context, t forum.Thread) (forum.Thread, error)
	GetThread(ctx context.Context, id string) (forum.Thread, error)
	// ListThreads returns threads ordered by last post date, most recent
	// first. An empty boardID means all boards.
	ListThreads(ctx context.Context, boardID string) ([]forum.Thread, error)
	// UpdateThreadAfterPost recounts the thread's posts and sets
	// reply_count and last_post_* in a single store-side step, so two
	// concurrent posts cannot lose an update.
	UpdateThreadAfterPost(ctx context.Context, threadID, author string, date time.Time) (forum.Thread, error)
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, p forum.Post) (forum.Post, error)
	GetPost(ctx context.Context, id string) (forum.Post, error)
	// ListPostsByThread returns a thread's posts oldest first.
	ListPostsByThread(ctx context.Context, threadID string) ([]forum.Post, error)
	CountPostsByThread(ctx context.Context, threadID string) (int, error)
}

// ListenerStore persists webhook registrations, one per consumer.
type ListenerStore interface {
	// PutListener registers or replaces the consumer's endpoint.
	PutListener(ctx context.Context, l forum.Listener) error
	ListListeners(ctx context.Context) ([]forum.Listener, error)
}

// Store is the full persistence surface of the API server.
type Store interface {
	UserStore
	ConsumerStore
	SessionStore
	BoardStore
	ThreadStore
	PostStore
	ListenerStore
}
