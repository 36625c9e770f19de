package engage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/store"
	"github.com/noesis-social/noesis/internal/store/sqlite"
)

type recordingNotifier struct {
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) {
	r.sent = append(r.sent, n)
}

func newTestEngine(t *testing.T) (*Engine, *sqlite.Store, *recordingNotifier) {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	notifier := &recordingNotifier{}
	return New(st, notifier), st, notifier
}

func seedUser(t *testing.T, st *sqlite.Store, username string) {
	t.Helper()
	now := time.Now()
	user := model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.CreateUser(context.Background(), &user))
}

func seedPost(t *testing.T, st *sqlite.Store, author, title string) int64 {
	t.Helper()
	now := time.Now()
	post := model.Post{
		Title:          title,
		Content:        "content",
		AuthorUsername: author,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := st.CreatePost(context.Background(), &post)
	require.NoError(t, err)
	return id
}

func TestToggleLike(t *testing.T) {
	engine, st, notifier := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, st, "alice")
	seedUser(t, st, "bob")
	postID := seedPost(t, st, "alice", "Morning Post")

	result, err := engine.ToggleLike(ctx, postID, "bob")
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.Likes)

	post, err := st.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, post.Likes, len(post.LikedBy))
	assert.Contains(t, post.LikedBy, "bob")

	// one notification, to the author, on the like transition
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, "alice", n.Recipient)
	assert.Equal(t, "bob", n.Sender)
	assert.Equal(t, model.NotifyLike, n.Type)
	require.NotNil(t, n.PostID)
	assert.Equal(t, postID, *n.PostID)
	assert.Equal(t, "Morning Post", n.PostTitle)

	// second toggle removes the like and stays silent
	result, err = engine.ToggleLike(ctx, postID, "bob")
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.Likes)
	assert.Len(t, notifier.sent, 1)

	post, _ = st.GetPost(ctx, postID)
	assert.Equal(t, post.Likes, len(post.LikedBy))
}

func TestToggleLikeOwnPost(t *testing.T) {
	engine, st, notifier := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, st, "alice")
	postID := seedPost(t, st, "alice", "Self Post")

	result, err := engine.ToggleLike(ctx, postID, "alice")
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Empty(t, notifier.sent, "liking your own post must not notify")
}

func TestToggleLikeMissingPost(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "bob")

	_, err := engine.ToggleLike(context.Background(), 999, "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddComment(t *testing.T) {
	engine, st, notifier := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, st, "alice")
	seedUser(t, st, "bob")
	postID := seedPost(t, st, "alice", "Open Thread")

	comment, err := engine.AddComment(ctx, postID, "bob", "  first!  ")
	require.NoError(t, err)
	assert.Equal(t, "first!", comment.Content)
	assert.Equal(t, "bob", comment.AuthorUsername)
	assert.NotZero(t, comment.ID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, model.NotifyComment, notifier.sent[0].Type)
	assert.Equal(t, "alice", notifier.sent[0].Recipient)

	// author commenting on their own post stays silent
	_, err = engine.AddComment(ctx, postID, "alice", "thanks all")
	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)
}

func TestAddCommentValidation(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, st, "alice")
	postID := seedPost(t, st, "alice", "Quiet Post")

	var validation *ValidationError

	_, err := engine.AddComment(ctx, postID, "alice", "   ")
	assert.ErrorAs(t, err, &validation)

	_, err = engine.AddComment(ctx, postID, "alice", strings.Repeat("a", 501))
	assert.ErrorAs(t, err, &validation)

	_, err = engine.AddComment(ctx, postID, "alice", strings.Repeat("a", 500))
	assert.NoError(t, err)

	_, err = engine.AddComment(ctx, 999, "alice", "hello")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCommentAuthorization(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, st, "alice")
	seedUser(t, st, "bob")
	seedUser(t, st, "mallory")
	postID := seedPost(t, st, "alice", "Moderated Post")

	comment, err := engine.AddComment(ctx, postID, "bob", "my comment")
	require.NoError(t, err)

	// a third party may not delete
	err = engine.DeleteComment(ctx, postID, comment.ID, "mallory")
	assert.ErrorIs(t, err, ErrForbidden)

	// the comment author may delete
	require.NoError(t, engine.DeleteComment(ctx, postID, comment.ID, "bob"))
	_, err = st.GetComment(ctx, postID, comment.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// the post author may delete someone else's comment
	comment, err = engine.AddComment(ctx, postID, "bob", "another comment")
	require.NoError(t, err)
	require.NoError(t, engine.DeleteComment(ctx, postID, comment.ID, "alice"))

	err = engine.DeleteComment(ctx, postID, 999, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleFollow(t *testing.T) {
	engine, st, notifier := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, st, "alice")
	seedUser(t, st, "bob")

	result, err := engine.ToggleFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, result.Following)
	assert.Equal(t, 1, result.FollowerCount)

	// the edge is directional
	following, err := st.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, following)
	reverse, err := st.IsFollowing(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, reverse)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, model.NotifyFollow, notifier.sent[0].Type)
	assert.Equal(t, "bob", notifier.sent[0].Recipient)
	assert.Equal(t, "alice", notifier.sent[0].Sender)

	// unfollow stays silent
	result, err = engine.ToggleFollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, result.Following)
	assert.Equal(t, 0, result.FollowerCount)
	assert.Len(t, notifier.sent, 1)
}

func TestToggleFollowSelf(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "alice")

	_, err := engine.ToggleFollow(context.Background(), "alice", "alice")
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Contains(t, validation.Reason, "yourself")
}

func TestToggleFollowMissingTarget(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	seedUser(t, st, "alice")

	_, err := engine.ToggleFollow(context.Background(), "alice", "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
