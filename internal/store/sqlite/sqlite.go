package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single connection so the pragma below applies to every statement
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	bio TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS follows (
	follower TEXT NOT NULL,
	followee TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (follower, followee),
	FOREIGN KEY(follower) REFERENCES users(username) ON DELETE CASCADE,
	FOREIGN KEY(followee) REFERENCES users(username) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	likes INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY(author) REFERENCES users(username) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author);
CREATE INDEX IF NOT EXISTS idx_posts_updated_at ON posts(updated_at DESC);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (post_id, username),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	author TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);

CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recipient TEXT NOT NULL,
	sender TEXT NOT NULL,
	type TEXT NOT NULL,
	post_id INTEGER,
	post_title TEXT NOT NULL DEFAULT '',
	sender_avatar TEXT NOT NULL DEFAULT '',
	read INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, read, created_at DESC);

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(username) REFERENCES users(username) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions(username);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, bio, avatar_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, user.Username, user.Email, user.PasswordHash, user.Bio, user.AvatarURL, user.CreatedAt.Unix(), user.UpdatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return store.ErrDuplicateEmail
			}
			return store.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT username, email, password_hash, bio, avatar_url, created_at, updated_at
FROM users
WHERE username = ?
`, username)
	var u model.User
	var created, updated int64
	if err := row.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.AvatarURL, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return u, nil
}

func (s *Store) UpdateBio(ctx context.Context, username, bio string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET bio = ?, updated_at = ? WHERE username = ?
`, bio, time.Now().Unix(), username)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAvatar(ctx context.Context, username, avatarURL string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET avatar_url = ?, updated_at = ? WHERE username = ?
`, avatarURL, time.Now().Unix(), username)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddFollow(ctx context.Context, follower, followee string) (bool, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO follows (follower, followee, created_at)
VALUES (?, ?, ?)
`, follower, followee, time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) RemoveFollow(ctx context.Context, follower, followee string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM follows WHERE follower = ? AND followee = ?
`, follower, followee)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM follows WHERE follower = ? AND followee = ?
`, follower, followee).Scan(&n)
	return n > 0, err
}

func (s *Store) FollowerCount(ctx context.Context, username string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE followee = ?`, username).Scan(&n)
	return n, err
}

func (s *Store) FollowingCount(ctx context.Context, username string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE follower = ?`, username).Scan(&n)
	return n, err
}

func (s *Store) ListFollowers(ctx context.Context, username string) ([]string, error) {
	return s.listUsernames(ctx, `SELECT follower FROM follows WHERE followee = ? ORDER BY created_at ASC`, username)
}

func (s *Store) ListFollowing(ctx context.Context, username string) ([]string, error) {
	return s.listUsernames(ctx, `SELECT followee FROM follows WHERE follower = ? ORDER BY created_at ASC`, username)
}

func (s *Store) listUsernames(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO posts (title, content, author, image_url, likes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, post.Title, post.Content, post.AuthorUsername, post.ImageURL, post.Likes, post.CreatedAt.Unix(), post.UpdatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPost returns the full document: the post row plus its embedded
// liked_by set and comment list.
func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, content, author, image_url, likes, created_at, updated_at
FROM posts
WHERE id = ?
`, id)
	post, err := scanPost(row)
	if err != nil {
		return model.Post{}, err
	}
	post.LikedBy, err = s.ListLikedBy(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	post.Comments, err = s.ListComments(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	return post, nil
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	switch {
	case opts.Author != "":
		rows, err = s.db.QueryContext(ctx, `
SELECT id, title, content, author, image_url, likes, created_at, updated_at
FROM posts
WHERE author = ?
ORDER BY updated_at DESC
LIMIT ?
`, opts.Author, limit)
	case opts.Query != "":
		rows, err = s.db.QueryContext(ctx, `
SELECT id, title, content, author, image_url, likes, created_at, updated_at
FROM posts
WHERE title LIKE '%' || ? || '%' COLLATE NOCASE
ORDER BY updated_at DESC
LIMIT ?
`, opts.Query, limit)
	default:
		rows, err = s.db.QueryContext(ctx, `
SELECT id, title, content, author, image_url, likes, created_at, updated_at
FROM posts
ORDER BY updated_at DESC
LIMIT ?
`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) UpdatePost(ctx context.Context, id int64, title, content, imageURL string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE posts SET title = ?, content = ?, image_url = ?, updated_at = ? WHERE id = ?
`, title, content, imageURL, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddLike(ctx context.Context, postID int64, username string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO post_likes (post_id, username, created_at)
VALUES (?, ?, ?)
`, postID, username, time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			_ = tx.Rollback()
			err = nil
			return false, nil
		}
		return false, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE posts SET likes = likes + 1 WHERE id = ?`, postID); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) RemoveLike(ctx context.Context, postID int64, username string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
DELETE FROM post_likes WHERE post_id = ? AND username = ?
`, postID, username)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		_ = tx.Rollback()
		return false, nil
	}
	// Membership is the source of truth; the counter floors at zero so a
	// drifted counter can never go negative.
	if _, err = tx.ExecContext(ctx, `UPDATE posts SET likes = MAX(likes - 1, 0) WHERE id = ?`, postID); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) HasLiked(ctx context.Context, postID int64, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM post_likes WHERE post_id = ? AND username = ?
`, postID, username).Scan(&n)
	return n > 0, err
}

func (s *Store) ListLikedBy(ctx context.Context, postID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT username FROM post_likes WHERE post_id = ? ORDER BY created_at ASC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO comments (post_id, content, author, created_at)
VALUES (?, ?, ?, ?)
`, comment.PostID, comment.Content, comment.AuthorUsername, comment.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetComment(ctx context.Context, postID, commentID int64) (model.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, post_id, content, author, created_at
FROM comments
WHERE id = ? AND post_id = ?
`, commentID, postID)
	var c model.Comment
	var created int64
	if err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorUsername, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, store.ErrNotFound
		}
		return model.Comment{}, err
	}
	c.CreatedAt = time.Unix(created, 0)
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, post_id, content, author, created_at
FROM comments
WHERE post_id = ?
ORDER BY id ASC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var created int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorUsername, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) DeleteComment(ctx context.Context, postID, commentID int64) error {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM comments WHERE id = ? AND post_id = ?
`, commentID, postID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO notifications (recipient, sender, type, post_id, post_title, sender_avatar, read, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, n.Recipient, n.Sender, n.Type, nullableInt(n.PostID), n.PostTitle, n.SenderAvatar, boolToInt(n.Read), n.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListNotifications(ctx context.Context, recipient string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, recipient, sender, type, post_id, post_title, sender_avatar, read, created_at
FROM notifications
WHERE recipient = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var postID sql.NullInt64
		var read int
		var created int64
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Sender, &n.Type, &postID, &n.PostTitle, &n.SenderAvatar, &read, &created); err != nil {
			return nil, err
		}
		if postID.Valid {
			pid := postID.Int64
			n.PostID = &pid
		}
		n.Read = read == 1
		n.CreatedAt = time.Unix(created, 0)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, recipient string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM notifications WHERE recipient = ? AND read = 0
`, recipient).Scan(&n)
	return n, err
}

// MarkRead flips a single notification; flipping an already-read one is a
// no-op, not an error.
func (s *Store) MarkRead(ctx context.Context, id int64, recipient string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE notifications SET read = 1 WHERE id = ? AND recipient = ?
`, id, recipient)
	return err
}

func (s *Store) MarkAllRead(ctx context.Context, recipient string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE notifications SET read = 1 WHERE recipient = ? AND read = 0
`, recipient)
	return err
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (token, username, expires_at, created_at)
VALUES (?, ?, ?, ?)
`, session.Token, session.Username, session.ExpiresAt.Unix(), time.Now().Unix())
	return err
}

func (s *Store) GetSession(ctx context.Context, token string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT token, username, expires_at
FROM sessions
WHERE token = ?
`, token)
	var sess model.Session
	var expires int64
	if err := row.Scan(&sess.Token, &sess.Username, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, store.ErrNotFound
		}
		return model.Session{}, err
	}
	sess.ExpiresAt = time.Unix(expires, 0)
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE username = ?`, username)
	return err
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var created, updated int64
	if err := scanner.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorUsername, &p.ImageURL, &p.Likes, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
