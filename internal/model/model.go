package model

import "time"

type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Post struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorUsername string    `json:"username"`
	ImageURL       string    `json:"image,omitempty"`
	Likes          int       `json:"likes"`
	LikedBy        []string  `json:"liked_by,omitempty"`
	Comments       []Comment `json:"comments,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Comment struct {
	ID             int64     `json:"id"`
	PostID         int64     `json:"post_id"`
	Content        string    `json:"content"`
	AuthorUsername string    `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	NotifyLike    = "like"
	NotifyComment = "comment"
	NotifyFollow  = "follow"
)

type Notification struct {
	ID           int64     `json:"id"`
	Recipient    string    `json:"recipient"`
	Sender       string    `json:"sender"`
	Type         string    `json:"type"`
	PostID       *int64    `json:"post_id,omitempty"`
	PostTitle    string    `json:"post_title,omitempty"`
	SenderAvatar string    `json:"sender_avatar,omitempty"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Profile is the public shape of a user as returned by the profile endpoint.
type Profile struct {
	Username       string    `json:"username"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar,omitempty"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	IsFollowing    bool      `json:"is_following"`
	IsOwnProfile   bool      `json:"is_own_profile"`
	CreatedAt      time.Time `json:"created_at"`
}
