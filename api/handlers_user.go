// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/forerun-app/forerun/forum"
	"github.com/forerun-app/forerun/store"
)

// POST /user/new: provision a user and its consumer. Only the frontend
// server's consumer (SystemAdmin) calls this. The caller can never grant an
// access level higher than its own.
func (s *Server) handleUserNew(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "handle", "email", "password_md5"); apiErr != nil {
		return nil, apiErr
	}
	caller, apiErr := s.withConsumer(r, "user/new")
	if apiErr != nil {
		return nil, apiErr
	}

	handle := r.FormValue("handle")
	email := r.FormValue("email")
	passwordMD5 := r.FormValue("password_md5")

	// validate before creating anything so a rejected signup leaves no
	// orphaned consumer behind
	var paramErrors []ParamError
	if !forum.ValidHandle(handle) {
		paramErrors = append(paramErrors, ParamError{
			Param:   "handle",
			Message: "Can only contain letters, numbers, and underscores",
			Value:   handle,
		})
	}
	if !forum.ValidEmail(email) {
		paramErrors = append(paramErrors, ParamError{
			Param:   "email",
			Message: "Invalid email address",
			Value:   email,
		})
	}
	level := forum.Member
	if v := r.FormValue("access_level"); v != "" {
		requested, convErr := strconv.Atoi(v)
		if convErr != nil {
			paramErrors = append(paramErrors, ParamError{
				Param:   "access_level",
				Message: "Must be a number",
				Value:   v,
			})
		} else {
			level = forum.AccessLevel(requested)
		}
	}
	if len(paramErrors) > 0 {
		return nil, ErrParams(paramErrors...)
	}

	ctx := r.Context()
	if _, err := s.store.FindUserByHandleFold(ctx, handle); err == nil {
		return nil, ErrHandleTaken()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, ErrServer(err.Error())
	}

	if level > caller.AccessLevel {
		level = caller.AccessLevel
	}

	consumer, err := s.store.CreateConsumer(ctx, forum.Consumer{
		APIKey:      GenerateTimedHash(s.salt, handle),
		APISecret:   GenerateTimedHash(s.salt, ""),
		AccessLevel: level,
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	salt := RandomSalt()
	user, err := s.store.CreateUser(ctx, forum.User{
		Handle:            handle,
		Email:             email,
		Salt:              salt,
		SaltedPasswordMD5: SaltedHash(salt, passwordMD5),
		ConsumerID:        consumer.ID,
	})
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	return map[string]any{"user": forum.RenderUser(&user, &consumer, false)}, nil
}

// POST /user/login: handle+password lookup on behalf of an end user. Only a
// SystemAdmin consumer may call this; end users never talk to the API
// directly. Unknown handle and wrong password return the same error family.
func (s *Server) handleUserLogin(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "handle", "password_md5"); apiErr != nil {
		return nil, apiErr
	}
	if _, apiErr := s.withConsumer(r, "user/login"); apiErr != nil {
		return nil, apiErr
	}

	ctx := r.Context()
	user, err := s.store.FindUserByHandle(ctx, r.FormValue("handle"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLoginFailed("That user does not exist")
		}
		return nil, ErrServer(err.Error())
	}

	if SaltedHash(user.Salt, r.FormValue("password_md5")) != user.SaltedPasswordMD5 {
		return nil, ErrLoginFailed("The password was incorrect")
	}

	consumer, err := s.store.GetConsumer(ctx, user.ConsumerID)
	if err != nil {
		return nil, ErrServer("Couldn't find consumer")
	}

	return map[string]any{"user": forum.RenderUser(&user, &consumer, false)}, nil
}

// GET /user/find: look up a user by handle. Settings are only included when
// users look at themselves; credentials are never included.
func (s *Server) handleUserFind(r *http.Request) (any, *Error) {
	if apiErr := requireParams(r, "handle"); apiErr != nil {
		return nil, apiErr
	}
	_, caller, apiErr := s.withConsumerAndUser(r, "user/find")
	if apiErr != nil {
		return nil, apiErr
	}

	ctx := r.Context()
	target, err := s.store.FindUserByHandle(ctx, r.FormValue("handle"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound("User not found")
		}
		return nil, ErrServer(err.Error())
	}

	targetConsumer, err := s.store.GetConsumer(ctx, target.ConsumerID)
	if err != nil {
		return nil, ErrServer("Couldn't find consumer for user")
	}

	isSelf := caller.ID == target.ID
	return map[string]any{
		"user":         forum.RenderUser(&target, nil, isSelf),
		"access_level": targetConsumer.AccessLevel,
	}, nil
}

// POST /user/update: self-service avatar edits; moderators may also edit
// other users' avatars and access levels, but can never raise a level above
// their own.
func (s *Server) handleUserUpdate(r *http.Request) (any, *Error) {
	caller, callerUser, apiErr := s.withConsumerAndUser(r, "user/update")
	if apiErr != nil {
		return nil, apiErr
	}

	ctx := r.Context()
	targetID := r.FormValue("user_id")
	if targetID == "" {
		targetID = callerUser.ID
	}
	target, err := s.store.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound("That user doesn't exist")
		}
		return nil, ErrServer(err.Error())
	}

	isSelf := target.ID == callerUser.ID
	allowed := true
	var newAccessLevel *forum.AccessLevel

	if v := r.FormValue("access_level"); v != "" {
		requested, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, ErrParams(ParamError{
				Param:   "access_level",
				Message: "Must be a number",
				Value:   v,
			})
		}
		level := forum.AccessLevel(requested)
		if caller.AccessLevel >= forum.Moderator && level <= caller.AccessLevel {
			newAccessLevel = &level
		} else {
			allowed = false
		}
	}
	if v := r.FormValue("avatar_small"); v != "" {
		if caller.AccessLevel >= forum.Moderator || isSelf {
			target.AvatarSmall = v
		} else {
			allowed = false
		}
	}
	if !allowed {
		return nil, ErrNotAuthorized("You can't make those changes")
	}

	target, err = s.store.UpdateUser(ctx, target)
	if err != nil {
		return nil, ErrServer(err.Error())
	}

	if newAccessLevel != nil {
		targetConsumer, err := s.store.GetConsumer(ctx, target.ConsumerID)
		if err != nil {
			return nil, ErrServer("Couldn't find consumer for user")
		}
		targetConsumer.AccessLevel = *newAccessLevel
		if _, err := s.store.UpdateConsumer(ctx, targetConsumer); err != nil {
			return nil, ErrServer(err.Error())
		}
	}

	return map[string]any{"user": forum.RenderUser(&target, nil, isSelf)}, nil
}
