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

// POST /thread/new: start a thread, optionally with an initial post. The
// thread's last-post fields point at its author from the start so listings
// sort it as fresh activity.
func (s *Server) handleThreadNew(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "title"); apiErr != nil {
		return nil, apiErr
	}
	_, user, apiErr := s.withConsumerAndUser(r, "thread/new")
	if apiErr != nil {
		return nil, apiErr
	}

	title := r.FormValue("title")
	if !forum.ValidThreadTitle(title) {
		return nil, ErrParams(ParamError{
			Param:   "title",
			Message: "Must be between 1 and 100 characters",
			Value:   title,
		})
	}

	ctx := r.Context()
	boardID := r.FormValue("board_id")
	if boardID != "" {
		if _, err := s.store.GetBoard(ctx, boardID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound("That board wasn't found")
			}
			return nil, ErrServer(err.Error())
		}
	}

	now := time.Now().UTC()
	body := r.FormValue("body_markdown")
	replyCount := 0
	if body != "" {
		replyCount = 1
	}

	thread, err := s.store.CreateThread(ctx, forum.Thread{
		Title:          title,
		UserHandle:     user.Handle,
		UserID:         user.ID,
		BoardID:        boardID,
		ReplyCount:     replyCount,
		LastPostAuthor: user.Handle,
		LastPostDate:   now,
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	var renderedPost *forum.RenderedPost
	if body != "" {
		post, err := s.store.CreatePost(ctx, forum.Post{
			BodyHTML:   markdown.ToHTML(body),
			UserHandle: user.Handle,
			UserID:     user.ID,
			ThreadID:   thread.ID,
			CreatedAt:  now,
		})
		if err != nil {
			return nil, ErrServer(err.Error())
		}
		renderedPost = forum.RenderPost(&post)
	}

	renderedThread := forum.RenderThread(&thread)
	s.emit(hook.Event{
		Type:   hook.EventNewThread,
		Thread: renderedThread,
		Post:   renderedPost,
	})

	resp := map[string]any{"thread": renderedThread}
	if renderedPost != nil {
		resp["post"] = renderedPost
	}
	return resp, nil
}

// GET /threads: all threads, most recently active first. board_id narrows
// the listing to one board.
func (s *Server) handleThreads(r *http.Request) (any, *Error) {
	if _, apiErr := s.withConsumer(r, "threads"); apiErr != nil {
		return nil, apiErr
	}

	threads, err := s.store.ListThreads(r.Context(), r.FormValue("board_id"))
	if err != nil {
		return nil, ErrServer(err.Error())
	}
	return map[string]any{"threads": renderThreads(threads)}, nil
}

// GET /thread/{id}: one thread with its posts, oldest post first.
func (s *Server) handleThreadGet(r *http.Request) (any, *Error) {
	if _, apiErr := s.withConsumer(r, "thread/get"); apiErr != nil {
		return nil, apiErr
	}

	ctx := r.Context()
	thread, err := s.store.GetThread(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound("That thread wasn't found")
		}
		return nil, ErrServer(err.Error())
	}

	posts, err := s.store.ListPostsByThread(ctx, thread.ID)
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	return map[string]any{
		"thread": forum.RenderThread(&thread),
		"posts":  renderPosts(posts),
	}, nil
}

// POST /board/new: create a board.
func (s *Server) handleBoardNew(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "title"); apiErr != nil {
		return nil, apiErr
	}
	_, user, apiErr := s.withConsumerAndUser(r, "board/new")
	if apiErr != nil {
		return nil, apiErr
	}

	board, err := s.store.CreateBoard(r.Context(), forum.Board{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		UserHandle:  user.Handle,
		UserID:      user.ID,
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}
	return map[string]any{"board": forum.RenderBoard(&board)}, nil
}

// GET /boards: all boards.
func (s *Server) handleBoards(r *http.Request) (any, *Error) {
	if _, apiErr := s.withConsumer(r, "boards"); apiErr != nil {
		return nil, apiErr
	}

	boards, err := s.store.ListBoards(r.Context())
	if err != nil {
		return nil, ErrServer(err.Error())
	}
	rendered := make([]*forum.RenderedBoard, 0, len(boards))
	for i := range boards {
		rendered = append(rendered, forum.RenderBoard(&boards[i]))
	}
	return map[string]any{"boards": rendered}, nil
}

// GET /board/{id}: one board with its threads.
func (s *Server) handleBoardGet(r *http.Request) (any, *Error) {
	if _, apiErr := s.withConsumer(r, "board/get"); apiErr != nil {
		return nil, apiErr
	}

	ctx := r.Context()
	board, err := s.store.GetBoard(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound("That board wasn't found")
		}
		return nil, ErrServer(err.Error())
	}

	threads, err := s.store.ListThreads(ctx, board.ID)
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	return map[string]any{
		"board":   forum.RenderBoard(&board),
		"threads": renderThreads(threads),
	}, nil
}

func renderThreads(threads []forum.Thread) []*forum.RenderedThread {
	rendered := make([]*forum.RenderedThread, 0, len(threads))
	for i := range threads {
		rendered = append(rendered, forum.RenderThread(&threads[i]))
	}
	return rendered
}

func renderPosts(posts []forum.Post) []*forum.RenderedPost {
	rendered := make([]*forum.RenderedPost, 0, len(posts))
	for i := range posts {
		rendered = append(rendered, forum.RenderPost(&posts[i]))
	}
	return rendered
}
