// This code is in Public Domain. Take all the code you want, I'll just write more.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forerun-app/forerun/forum"
)

// MemStore is an in-memory implementation of Store. It is safe for
// concurrent use and is primarily intended for tests and local development.
type MemStore struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[string]forum.User
	consumers map[string]forum.Consumer
	sessions  map[string]forum.Session
	boards    map[string]forum.Board
	threads   map[string]forum.Thread
	posts     map[string]forum.Post
	postOrder []string
	listeners map[string]forum.Listener
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		nextID:    1,
		users:     make(map[string]forum.User),
		consumers: make(map[string]forum.Consumer),
		sessions:  make(map[string]forum.Session),
		boards:    make(map[string]forum.Board),
		threads:   make(map[string]forum.Thread),
		posts:     make(map[string]forum.Post),
		listeners: make(map[string]forum.Listener),
	}
}

func (s *MemStore) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ---------------------------------------------------

func (s *MemStore) CreateUser(_ context.Context, u forum.User) (forum.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStore) UpdateUser(_ context.Context, u forum.User) (forum.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return forum.User{}, ErrNotFound
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStore) GetUser(_ context.Context, id string) (forum.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return forum.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemStore) FindUserByHandle(_ context.Context, handle string) (forum.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Handle == handle {
			return u, nil
		}
	}
	return forum.User{}, ErrNotFound
}

func (s *MemStore) FindUserByHandleFold(_ context.Context, handle string) (forum.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Handle, handle) {
			return u, nil
		}
	}
	return forum.User{}, ErrNotFound
}

func (s *MemStore) FindUserByConsumer(_ context.Context, consumerID string) (forum.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ConsumerID == consumerID {
			return u, nil
		}
	}
	return forum.User{}, ErrNotFound
}

// ConsumerStore implementation -----------------------------------------------

func (s *MemStore) CreateConsumer(_ context.Context, c forum.Consumer) (forum.Consumer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	s.consumers[c.ID] = c
	return c, nil
}

func (s *MemStore) UpdateConsumer(_ context.Context, c forum.Consumer) (forum.Consumer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consumers[c.ID]; !ok {
		return forum.Consumer{}, ErrNotFound
	}
	s.consumers[c.ID] = c
	return c, nil
}

func (s *MemStore) GetConsumer(_ context.Context, id string) (forum.Consumer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.consumers[id]
	if !ok {
		return forum.Consumer{}, ErrNotFound
	}
	return c, nil
}

func (s *MemStore) FindConsumerByKey(_ context.Context, apiKey string) (forum.Consumer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.consumers {
		if c.APIKey == apiKey {
			return c, nil
		}
	}
	return forum.Consumer{}, ErrNotFound
}

// SessionStore implementation ------------------------------------------------

func (s *MemStore) CreateSession(_ context.Context, sess forum.Session) (forum.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.TouchDate.IsZero() {
		sess.TouchDate = time.Now().UTC()
	}
	s.sessions[sess.APIToken] = sess
	return sess, nil
}

func (s *MemStore) FindSessionByToken(_ context.Context, token string) (forum.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return forum.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemStore) DeleteSessionByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

func (s *MemStore) TouchSession(_ context.Context, token string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return ErrNotFound
	}
	sess.TouchDate = now
	s.sessions[token] = sess
	return nil
}

// BoardStore implementation --------------------------------------------------

func (s *MemStore) CreateBoard(_ context.Context, b forum.Board) (forum.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = s.nextIDLocked()
	}
	s.boards[b.ID] = b
	return b, nil
}

func (s *MemStore) GetBoard(_ context.Context, id string) (forum.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return forum.Board{}, ErrNotFound
	}
	return b, nil
}

func (s *MemStore) ListBoards(_ context.Context) ([]forum.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boards := make([]forum.Board, 0, len(s.boards))
	for _, b := range s.boards {
		boards = append(boards, b)
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	return boards, nil
}

// ThreadStore implementation -------------------------------------------------

func (s *MemStore) CreateThread(_ context.Context, t forum.Thread) (forum.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	s.threads[t.ID] = t
	return t, nil
}

func (s *MemStore) GetThread(_ context.Context, id string) (forum.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return forum.Thread{}, ErrNotFound
	}
	return t, nil
}

func (s *MemStore) ListThreads(_ context.Context, boardID string) ([]forum.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]forum.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		if boardID != "" && t.BoardID != boardID {
			continue
		}
		threads = append(threads, t)
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].LastPostDate.After(threads[j].LastPostDate)
	})
	return threads, nil
}

func (s *MemStore) UpdateThreadAfterPost(_ context.Context, threadID, author string, date time.Time) (forum.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return forum.Thread{}, ErrNotFound
	}
	n := 0
	for _, id := range s.postOrder {
		if s.posts[id].ThreadID == threadID {
			n++
		}
	}
	t.ReplyCount = n
	t.LastPostAuthor = author
	t.LastPostDate = date
	s.threads[threadID] = t
	return t, nil
}

// PostStore implementation ---------------------------------------------------

func (s *MemStore) CreatePost(_ context.Context, p forum.Post) (forum.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.posts[p.ID] = p
	s.postOrder = append(s.postOrder, p.ID)
	return p, nil
}

func (s *MemStore) GetPost(_ context.Context, id string) (forum.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return forum.Post{}, ErrNotFound
	}
	return p, nil
}

func (s *MemStore) ListPostsByThread(_ context.Context, threadID string) ([]forum.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]forum.Post, 0)
	for _, id := range s.postOrder {
		if p := s.posts[id]; p.ThreadID == threadID {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (s *MemStore) CountPostsByThread(_ context.Context, threadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, id := range s.postOrder {
		if s.posts[id].ThreadID == threadID {
			n++
		}
	}
	return n, nil
}

// ListenerStore implementation -----------------------------------------------

func (s *MemStore) PutListener(_ context.Context, l forum.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners[l.ConsumerID] = l
	return nil
}

func (s *MemStore) ListListeners(_ context.Context) ([]forum.Listener, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listeners := make([]forum.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	sort.Slice(listeners, func(i, j int) bool {
		return listeners[i].ConsumerID < listeners[j].ConsumerID
	})
	return listeners, nil
}
