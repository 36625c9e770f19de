// Package engage owns the state transitions for likes, comments and the
// follow graph, and decides when an action produces a notification.
package engage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/store"
)

var ErrForbidden = errors.New("forbidden")

// ValidationError carries a human-readable reason for a rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

const maxCommentLen = 500

// Notifier receives a notification to persist and fan out. Delivery is
// best-effort; the engine never fails an action because a push failed.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

type Engine struct {
	store    store.Store
	notifier Notifier
}

func New(st store.Store, notifier Notifier) *Engine {
	return &Engine{store: st, notifier: notifier}
}

type LikeResult struct {
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

// ToggleLike flips actor's membership in the post's liked_by set. The post
// author is notified on the like-added transition only, and never about
// their own likes.
func (e *Engine) ToggleLike(ctx context.Context, postID int64, actor string) (LikeResult, error) {
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return LikeResult{}, err
	}

	liked, err := e.store.HasLiked(ctx, postID, actor)
	if err != nil {
		return LikeResult{}, err
	}

	if liked {
		if _, err := e.store.RemoveLike(ctx, postID, actor); err != nil {
			return LikeResult{}, err
		}
	} else {
		added, err := e.store.AddLike(ctx, postID, actor)
		if err != nil {
			return LikeResult{}, err
		}
		if added && actor != post.AuthorUsername {
			pid := post.ID
			e.notifier.Notify(ctx, model.Notification{
				Recipient: post.AuthorUsername,
				Sender:    actor,
				Type:      model.NotifyLike,
				PostID:    &pid,
				PostTitle: post.Title,
				CreatedAt: time.Now(),
			})
		}
	}

	updated, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Likes: updated.Likes, Liked: !liked}, nil
}

// AddComment appends a comment to the post. Ordering is insertion order;
// comments are never edited in place.
func (e *Engine) AddComment(ctx context.Context, postID int64, actor, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, validationf("comment content is required")
	}
	if len(content) > maxCommentLen {
		return model.Comment{}, validationf("comment must be %d characters or fewer", maxCommentLen)
	}

	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return model.Comment{}, err
	}

	comment := model.Comment{
		PostID:         postID,
		Content:        content,
		AuthorUsername: actor,
		CreatedAt:      time.Now(),
	}
	id, err := e.store.CreateComment(ctx, &comment)
	if err != nil {
		return model.Comment{}, err
	}
	comment.ID = id

	if actor != post.AuthorUsername {
		pid := post.ID
		e.notifier.Notify(ctx, model.Notification{
			Recipient: post.AuthorUsername,
			Sender:    actor,
			Type:      model.NotifyComment,
			PostID:    &pid,
			PostTitle: post.Title,
			CreatedAt: time.Now(),
		})
	}

	return comment, nil
}

// DeleteComment removes a comment by identity. Only the comment's author and
// the post's author may delete it.
func (e *Engine) DeleteComment(ctx context.Context, postID, commentID int64, actor string) error {
	post, err := e.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	comment, err := e.store.GetComment(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if actor != comment.AuthorUsername && actor != post.AuthorUsername {
		return ErrForbidden
	}
	return e.store.DeleteComment(ctx, postID, commentID)
}

type FollowResult struct {
	Following     bool `json:"following"`
	FollowerCount int  `json:"follower_count"`
}

// ToggleFollow flips the actor->target follow edge. Both sides of the
// relation move together: the edge row is the single source of truth for
// target.followers and actor.following. The target is notified only on the
// follow transition.
func (e *Engine) ToggleFollow(ctx context.Context, actor, target string) (FollowResult, error) {
	if actor == target {
		return FollowResult{}, validationf("you cannot follow yourself")
	}
	if _, err := e.store.GetUser(ctx, target); err != nil {
		return FollowResult{}, err
	}

	following, err := e.store.IsFollowing(ctx, actor, target)
	if err != nil {
		return FollowResult{}, err
	}

	if following {
		if _, err := e.store.RemoveFollow(ctx, actor, target); err != nil {
			return FollowResult{}, err
		}
	} else {
		added, err := e.store.AddFollow(ctx, actor, target)
		if err != nil {
			return FollowResult{}, err
		}
		if added {
			e.notifier.Notify(ctx, model.Notification{
				Recipient: target,
				Sender:    actor,
				Type:      model.NotifyFollow,
				CreatedAt: time.Now(),
			})
		}
	}

	count, err := e.store.FollowerCount(ctx, target)
	if err != nil {
		return FollowResult{}, err
	}
	return FollowResult{Following: !following, FollowerCount: count}, nil
}
