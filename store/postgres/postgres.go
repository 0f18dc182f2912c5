// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package postgres implements store.Store on PostgreSQL via database/sql
// and lib/pq. Schema lives in schema.sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/store"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at url and pings it.
func Open(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, handle, email, salt, salted_password_md5, join_date, avatar_small, hide_images_by_default, consumer_id`

func scanUser(row interface{ Scan(...any) error }) (forum.User, error) {
	var u forum.User
	err := row.Scan(&u.ID, &u.Handle, &u.Email, &u.Salt, &u.SaltedPasswordMD5,
		&u.JoinDate, &u.AvatarSmall, &u.Settings.HideImagesByDefault, &u.ConsumerID)
	if err != nil {
		return forum.User{}, notFound(err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u forum.User) (forum.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Handle, u.Email, u.Salt, u.SaltedPasswordMD5, u.JoinDate,
		u.AvatarSmall, u.Settings.HideImagesByDefault, u.ConsumerID)
	if err != nil {
		return forum.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u forum.User) (forum.User, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET handle = $2, email = $3, salt = $4,
			salted_password_md5 = $5, avatar_small = $6,
			hide_images_by_default = $7
		WHERE id = $1
	`, u.ID, u.Handle, u.Email, u.Salt, u.SaltedPasswordMD5, u.AvatarSmall,
		u.Settings.HideImagesByDefault)
	if err != nil {
		return forum.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return forum.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (forum.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) FindUserByHandle(ctx context.Context, handle string) (forum.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE handle = $1`, handle))
}

func (s *Store) FindUserByHandleFold(ctx context.Context, handle string) (forum.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(handle) = lower($1) LIMIT 1`, handle))
}

func (s *Store) FindUserByConsumer(ctx context.Context, consumerID string) (forum.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE consumer_id = $1`, consumerID))
}

// --- ConsumerStore ----------------------------------------------------------

func scanConsumer(row interface{ Scan(...any) error }) (forum.Consumer, error) {
	var c forum.Consumer
	if err := row.Scan(&c.ID, &c.APIKey, &c.APISecret, &c.AccessLevel); err != nil {
		return forum.Consumer{}, notFound(err)
	}
	return c, nil
}

func (s *Store) CreateConsumer(ctx context.Context, c forum.Consumer) (forum.Consumer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consumers (id, api_key, api_secret, access_level)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.APIKey, c.APISecret, int(c.AccessLevel))
	if err != nil {
		return forum.Consumer{}, err
	}
	return c, nil
}

func (s *Store) UpdateConsumer(ctx context.Context, c forum.Consumer) (forum.Consumer, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE consumers SET api_key = $2, api_secret = $3, access_level = $4
		WHERE id = $1
	`, c.ID, c.APIKey, c.APISecret, int(c.AccessLevel))
	if err != nil {
		return forum.Consumer{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return forum.Consumer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetConsumer(ctx context.Context, id string) (forum.Consumer, error) {
	return scanConsumer(s.db.QueryRowContext(ctx,
		`SELECT id, api_key, api_secret, access_level FROM consumers WHERE id = $1`, id))
}

func (s *Store) FindConsumerByKey(ctx context.Context, apiKey string) (forum.Consumer, error) {
	return scanConsumer(s.db.QueryRowContext(ctx,
		`SELECT id, api_key, api_secret, access_level FROM consumers WHERE api_key = $1`, apiKey))
}

// --- SessionStore -----------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess forum.Session) (forum.Session, error) {
	if sess.TouchDate.IsZero() {
		sess.TouchDate = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (api_token, consumer_id, touch_date)
		VALUES ($1, $2, $3)
	`, sess.APIToken, sess.ConsumerID, sess.TouchDate)
	if err != nil {
		return forum.Session{}, err
	}
	return sess, nil
}

func (s *Store) FindSessionByToken(ctx context.Context, token string) (forum.Session, error) {
	var sess forum.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT api_token, consumer_id, touch_date FROM sessions WHERE api_token = $1
	`, token).Scan(&sess.APIToken, &sess.ConsumerID, &sess.TouchDate)
	if err != nil {
		return forum.Session{}, notFound(err)
	}
	return sess, nil
}

func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE api_token = $1`, token)
	return err
}

func (s *Store) TouchSession(ctx context.Context, token string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET touch_date = $2 WHERE api_token = $1`, token, now)
	return err
}

// --- BoardStore -------------------------------------------------------------

func (s *Store) CreateBoard(ctx context.Context, b forum.Board) (forum.Board, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, title, description, user_handle, user_id)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.Title, b.Description, b.UserHandle, b.UserID)
	if err != nil {
		return forum.Board{}, err
	}
	return b, nil
}

func (s *Store) GetBoard(ctx context.Context, id string) (forum.Board, error) {
	var b forum.Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, user_handle, user_id FROM boards WHERE id = $1
	`, id).Scan(&b.ID, &b.Title, &b.Description, &b.UserHandle, &b.UserID)
	if err != nil {
		return forum.Board{}, notFound(err)
	}
	return b, nil
}

func (s *Store) ListBoards(ctx context.Context) ([]forum.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, user_handle, user_id FROM boards ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := make([]forum.Board, 0)
	for rows.Next() {
		var b forum.Board
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.UserHandle, &b.UserID); err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// --- ThreadStore ------------------------------------------------------------

const threadColumns = `id, title, user_handle, user_id, board_id, reply_count, last_post_author, last_post_date`

func scanThread(row interface{ Scan(...any) error }) (forum.Thread, error) {
	var t forum.Thread
	err := row.Scan(&t.ID, &t.Title, &t.UserHandle, &t.UserID, &t.BoardID,
		&t.ReplyCount, &t.LastPostAuthor, &t.LastPostDate)
	if err != nil {
		return forum.Thread{}, notFound(err)
	}
	return t, nil
}

func (s *Store) CreateThread(ctx context.Context, t forum.Thread) (forum.Thread, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (`+threadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Title, t.UserHandle, t.UserID, t.BoardID, t.ReplyCount,
		t.LastPostAuthor, t.LastPostDate)
	if err != nil {
		return forum.Thread{}, err
	}
	return t, nil
}

func (s *Store) GetThread(ctx context.Context, id string) (forum.Thread, error) {
	return scanThread(s.db.QueryRowContext(ctx,
		`SELECT `+threadColumns+` FROM threads WHERE id = $1`, id))
}

func (s *Store) ListThreads(ctx context.Context, boardID string) ([]forum.Thread, error) {
	q := `SELECT ` + threadColumns + ` FROM threads ORDER BY last_post_date DESC`
	args := []any{}
	if boardID != "" {
		q = `SELECT ` + threadColumns + ` FROM threads WHERE board_id = $1 ORDER BY last_post_date DESC`
		args = append(args, boardID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := make([]forum.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// UpdateThreadAfterPost recomputes reply_count from the posts table inside
// the UPDATE itself, so concurrent posters cannot lose an increment.
func (s *Store) UpdateThreadAfterPost(ctx context.Context, threadID, author string, date time.Time) (forum.Thread, error) {
	return scanThread(s.db.QueryRowContext(ctx, `
		UPDATE threads
		SET reply_count = (SELECT COUNT(*) FROM posts WHERE thread_id = $1),
			last_post_author = $2,
			last_post_date = $3
		WHERE id = $1
		RETURNING `+threadColumns+`
	`, threadID, author, date))
}

// --- PostStore --------------------------------------------------------------

const postColumns = `id, body_html, user_handle, user_id, thread_id, created_at`

func scanPost(row interface{ Scan(...any) error }) (forum.Post, error) {
	var p forum.Post
	err := row.Scan(&p.ID, &p.BodyHTML, &p.UserHandle, &p.UserID, &p.ThreadID, &p.CreatedAt)
	if err != nil {
		return forum.Post{}, notFound(err)
	}
	return p, nil
}

func (s *Store) CreatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.BodyHTML, p.UserHandle, p.UserID, p.ThreadID, p.CreatedAt)
	if err != nil {
		return forum.Post{}, err
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (forum.Post, error) {
	return scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

func (s *Store) ListPostsByThread(ctx context.Context, threadID string) ([]forum.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE thread_id = $1 ORDER BY created_at, id`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]forum.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) CountPostsByThread(ctx context.Context, threadID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE thread_id = $1`, threadID).Scan(&n)
	return n, err
}

// --- ListenerStore ----------------------------------------------------------

func (s *Store) PutListener(ctx context.Context, l forum.Listener) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listeners (consumer_id, endpoint)
		VALUES ($1, $2)
		ON CONFLICT (consumer_id) DO UPDATE SET endpoint = EXCLUDED.endpoint
	`, l.ConsumerID, l.Endpoint)
	return err
}

func (s *Store) ListListeners(ctx context.Context) ([]forum.Listener, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT consumer_id, endpoint FROM listeners ORDER BY consumer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listeners := make([]forum.Listener, 0)
	for rows.Next() {
		var l forum.Listener
		if err := rows.Scan(&l.ConsumerID, &l.Endpoint); err != nil {
			return nil, err
		}
		listeners = append(listeners, l)
	}
	return listeners, rows.Err()
}
