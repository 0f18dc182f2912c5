// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package redisstore keeps API sessions in redis instead of the primary
// database. Token revocation stays immediate because the guard re-reads the
// session on every request; there is deliberately no TTL on the keys.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/store"
)

const keyPrefix = "forerun:session:"

// SessionStore implements store.SessionStore on a redis client.
type SessionStore struct {
	client *redis.Client
}

var _ store.SessionStore = (*SessionStore)(nil)

// New creates a SessionStore over an existing client.
func New(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Open connects to redis at addr and pings it.
func Open(ctx context.Context, addr string) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client), nil
}

// Close closes the underlying client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

func sessionKey(token string) string {
	return keyPrefix + token
}

func (s *SessionStore) CreateSession(ctx context.Context, sess forum.Session) (forum.Session, error) {
	if sess.TouchDate.IsZero() {
		sess.TouchDate = time.Now().UTC()
	}
	err := s.client.HSet(ctx, sessionKey(sess.APIToken),
		"consumer_id", sess.ConsumerID,
		"touch_date", sess.TouchDate.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return forum.Session{}, err
	}
	return sess, nil
}

func (s *SessionStore) FindSessionByToken(ctx context.Context, token string) (forum.Session, error) {
	vals, err := s.client.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return forum.Session{}, err
	}
	// HGETALL returns an empty map, not redis.Nil, for a missing key
	consumerID, ok := vals["consumer_id"]
	if !ok {
		return forum.Session{}, store.ErrNotFound
	}
	sess := forum.Session{APIToken: token, ConsumerID: consumerID}
	if raw, ok := vals["touch_date"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			sess.TouchDate = t
		}
	}
	return sess, nil
}

func (s *SessionStore) DeleteSessionByToken(ctx context.Context, token string) error {
	err := s.client.Del(ctx, sessionKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (s *SessionStore) TouchSession(ctx context.Context, token string, now time.Time) error {
	exists, err := s.client.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return s.client.HSet(ctx, sessionKey(token),
		"touch_date", now.Format(time.RFC3339Nano)).Err()
}
