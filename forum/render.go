// This code is in Public Domain. Take all the code you want, I'll just write more.
package forum

// The Rendered* types are the wire shapes of the API. Dates go out as unix
// milliseconds. Field names follow the original wire format exactly so
// existing clients keep working.

// RenderedConsumer is the wire shape of a Consumer.
type RenderedConsumer struct {
	APIKey      string      `json:"api_key"`
	APISecret   string      `json:"api_secret"`
	AccessLevel AccessLevel `json:"access_level"`
}

// RenderedSettings is the wire shape of per-user settings. Only included
// when a user looks at themselves.
type RenderedSettings struct {
	HideImagesByDefault bool `json:"hide_images_by_default"`
}

// RenderedUser is the wire shape of a User.
type RenderedUser struct {
	ID          string            `json:"_id"`
	Handle      string            `json:"handle"`
	Email       string            `json:"email"`
	JoinDate    int64             `json:"join_date"`
	AvatarSmall string            `json:"avatar_small,omitempty"`
	Consumer    *RenderedConsumer `json:"consumer,omitempty"`
	Settings    *RenderedSettings `json:"settings,omitempty"`
}

// RenderedLastPost summarizes a thread's most recent post.
type RenderedLastPost struct {
	Author string `json:"author"`
	Date   int64  `json:"date"`
}

// RenderedThread is the wire shape of a Thread.
type RenderedThread struct {
	ID         string            `json:"_id"`
	Title      string            `json:"title"`
	UserHandle string            `json:"user_handle"`
	UserID     string            `json:"user_id"`
	BoardID    string            `json:"board_id,omitempty"`
	ReplyCount int               `json:"reply_count"`
	LastPost   *RenderedLastPost `json:"last_post"`
}

// RenderedPost is the wire shape of a Post.
type RenderedPost struct {
	ID         string `json:"_id"`
	BodyHTML   string `json:"body_html"`
	UserHandle string `json:"user_handle"`
	UserID     string `json:"user_id"`
	ThreadID   string `json:"thread_id"`
}

// RenderedBoard is the wire shape of a Board.
type RenderedBoard struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UserHandle  string `json:"user_handle"`
	UserID      string `json:"user_id"`
}

// RenderConsumer renders a consumer, credentials included. Only returned to
// callers already privileged enough to act as that consumer.
func RenderConsumer(c *Consumer) *RenderedConsumer {
	return &RenderedConsumer{
		APIKey:      c.APIKey,
		APISecret:   c.APISecret,
		AccessLevel: c.AccessLevel,
	}
}

// RenderUser renders a user. consumer may be nil. Settings are included only
// when includeSettings is set (the user looking at their own record).
func RenderUser(u *User, consumer *Consumer, includeSettings bool) *RenderedUser {
	r := &RenderedUser{
		ID:          u.ID,
		Handle:      u.Handle,
		Email:       u.Email,
		JoinDate:    u.JoinDate.UnixMilli(),
		AvatarSmall: u.AvatarSmall,
	}
	if consumer != nil {
		r.Consumer = RenderConsumer(consumer)
	}
	if includeSettings {
		r.Settings = &RenderedSettings{
			HideImagesByDefault: u.Settings.HideImagesByDefault,
		}
	}
	return r
}

// RenderThread renders a thread. last_post is null until the thread has one.
func RenderThread(t *Thread) *RenderedThread {
	r := &RenderedThread{
		ID:         t.ID,
		Title:      t.Title,
		UserHandle: t.UserHandle,
		UserID:     t.UserID,
		BoardID:    t.BoardID,
		ReplyCount: t.ReplyCount,
	}
	if t.LastPostAuthor != "" && !t.LastPostDate.IsZero() {
		r.LastPost = &RenderedLastPost{
			Author: t.LastPostAuthor,
			Date:   t.LastPostDate.UnixMilli(),
		}
	}
	return r
}

// RenderPost renders a post.
func RenderPost(p *Post) *RenderedPost {
	return &RenderedPost{
		ID:         p.ID,
		BodyHTML:   p.BodyHTML,
		UserHandle: p.UserHandle,
		UserID:     p.UserID,
		ThreadID:   p.ThreadID,
	}
}

// RenderBoard renders a board.
func RenderBoard(b *Board) *RenderedBoard {
	return &RenderedBoard{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		UserHandle:  b.UserHandle,
		UserID:      b.UserID,
	}
}
