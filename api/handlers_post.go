// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/hook"
	"github.com/forerun-app/forerun/markdown"
	"github.com/forerun-app/forerun/store"
)

// POST /post/new: reply to a thread. The post is the durable record; the
// thread's denormalized reply_count/last_post are recomputed afterwards and
// a failure there only degrades listings, so it never fails the request.
func (s *Server) handlePostNew(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "body_markdown", "thread_id"); apiErr != nil {
		return nil, apiErr
	}
	_, user, apiErr := s.withConsumerAndUser(r, "post/new")
	if apiErr != nil {
		return nil, apiErr
	}

	ctx := r.Context()
	thread, err := s.store.GetThread(ctx, r.FormValue("thread_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound("Can't post to a nonexistent thread")
		}
		return nil, ErrServer(err.Error())
	}

	now := time.Now().UTC()
	post, err := s.store.CreatePost(ctx, forum.Post{
		BodyHTML:   markdown.ToHTML(r.FormValue("body_markdown")),
		UserHandle: user.Handle,
		UserID:     user.ID,
		ThreadID:   thread.ID,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	updated, err := s.store.UpdateThreadAfterPost(ctx, thread.ID, user.Handle, now)
	if err != nil {
		s.log.WithError(err).WithField("thread_id", thread.ID).
			Error("failed to update thread after post")
	} else {
		thread = updated
	}

	renderedPost := forum.RenderPost(&post)
	s.emit(hook.Event{Type: hook.EventNewPost, Post: renderedPost})

	return map[string]any{
		"post":   renderedPost,
		"thread": forum.RenderThread(&thread),
	}, nil
}

// GET /post/{id}: one post.
func (s *Server) handlePostGet(r *http.Request) (any, *Error) {
	if _, apiErr := s.withConsumer(r, "post/get"); apiErr != nil {
		return nil, apiErr
	}

	post, err := s.store.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound("That post wasn't found")
		}
		return nil, ErrServer(err.Error())
	}
	return map[string]any{"post": forum.RenderPost(&post)}, nil
}
