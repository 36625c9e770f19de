package store

import (
	"context"
	"errors"

	"github.com/noesis-social/noesis/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)

type PostListOpts struct {
	Author string
	Query  string
	Limit  int
}

// Store is the persistence boundary. Per-entity updates are atomic: a like
// toggle moves the liked_by membership and the likes counter in one
// transaction, and a follow toggle moves a single edge row, so callers never
// observe the counter and the set disagreeing.
type Store interface {
	UserStore
	FollowStore
	PostStore
	LikeStore
	CommentStore
	NotificationStore
	SessionStore
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, username string) (model.User, error)
	UpdateBio(ctx context.Context, username, bio string) error
	UpdateAvatar(ctx context.Context, username, avatarURL string) error
	// DeleteUser removes the user together with their posts, the likes and
	// comments hanging off those posts, and the user's follow edges.
	DeleteUser(ctx context.Context, username string) error
}

type FollowStore interface {
	// AddFollow inserts the follower->followee edge. Inserting an edge that
	// already exists reports added=false and changes nothing.
	AddFollow(ctx context.Context, follower, followee string) (added bool, err error)
	RemoveFollow(ctx context.Context, follower, followee string) (removed bool, err error)
	IsFollowing(ctx context.Context, follower, followee string) (bool, error)
	FollowerCount(ctx context.Context, username string) (int, error)
	FollowingCount(ctx context.Context, username string) (int, error)
	ListFollowers(ctx context.Context, username string) ([]string, error)
	ListFollowing(ctx context.Context, username string) ([]string, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	ListPosts(ctx context.Context, opts PostListOpts) ([]model.Post, error)
	UpdatePost(ctx context.Context, id int64, title, content, imageURL string) error
	DeletePost(ctx context.Context, id int64) error
}

type LikeStore interface {
	// AddLike records username in the post's liked_by set and increments the
	// counter, both in one transaction. added=false means the user had
	// already liked the post and nothing changed.
	AddLike(ctx context.Context, postID int64, username string) (added bool, err error)
	// RemoveLike is the inverse; the counter decrement floors at zero.
	RemoveLike(ctx context.Context, postID int64, username string) (removed bool, err error)
	HasLiked(ctx context.Context, postID int64, username string) (bool, error)
	ListLikedBy(ctx context.Context, postID int64) ([]string, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (int64, error)
	GetComment(ctx context.Context, postID, commentID int64) (model.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID int64) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) (int64, error)
	ListNotifications(ctx context.Context, recipient string, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipient string) (int, error)
	MarkRead(ctx context.Context, id int64, recipient string) error
	MarkAllRead(ctx context.Context, recipient string) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, token string) (model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, username string) error
}
