package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noesis-social/noesis/internal/auth"
	"github.com/noesis-social/noesis/internal/config"
	"github.com/noesis-social/noesis/internal/engage"
	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/push"
	"github.com/noesis-social/noesis/internal/rate"
	"github.com/noesis-social/noesis/internal/store"
	"github.com/noesis-social/noesis/internal/upload"

	_ "github.com/noesis-social/noesis/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
)

const sessionCookie = "noesis_session"

const (
	maxTitleLen   = 200
	maxContentLen = 50000
	maxBioLen     = 300
)

type Server struct {
	store    store.Store
	auth     *auth.Service
	engine   *engage.Engine
	hub      *push.Hub
	uploads  upload.Provider
	limiter  rate.Limiter
	cfg      config.Config
	upgrader websocket.Upgrader
	static   http.Handler
}

func NewServer(st store.Store, authSvc *auth.Service, engine *engage.Engine, hub *push.Hub, uploads upload.Provider, limiter rate.Limiter, cfg config.Config) *Server {
	s := &Server{
		store:   st,
		auth:    authSvc,
		engine:  engine,
		hub:     hub,
		uploads: uploads,
		limiter: limiter,
		cfg:     cfg,
		static:  http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.ClientOrigin
		},
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cors(w, r) {
		return
	}

	path := r.URL.Path
	if path == "/" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Noesis API is running"})
		return
	}
	if strings.HasPrefix(path, "/uploads/") {
		s.static.ServeHTTP(w, r)
		return
	}
	if strings.HasPrefix(path, "/swagger/") {
		httpSwagger.WrapHandler.ServeHTTP(w, r)
		return
	}
	if path == "/ws" {
		s.handleSocket(w, r)
		return
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		notFound(w)
		return
	}

	switch segments[0] {
	case "auth":
		s.routeAuth(w, r, segments[1:])
	case "pub":
		s.routePub(w, r, segments[1:])
	case "profile":
		s.routeProfile(w, r, segments[1:])
	case "notifications":
		s.routeNotifications(w, r, segments[1:])
	default:
		notFound(w)
	}
}

// cors writes the response headers for the configured client origin and
// short-circuits preflight requests.
func (s *Server) cors(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == s.cfg.ClientOrigin {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func (s *Server) routeAuth(w http.ResponseWriter, r *http.Request, segments []string) {
	switch {
	case len(segments) == 1 && segments[0] == "signup":
		if r.Method == http.MethodPost {
			s.handleSignup(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "login":
		if r.Method == http.MethodPost {
			s.handleLogin(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "logout":
		if r.Method == http.MethodPost {
			s.handleLogout(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "me":
		if r.Method == http.MethodGet {
			s.handleMe(w, r)
			return
		}
		if r.Method == http.MethodDelete {
			s.handleDeleteAccount(w, r)
			return
		}
	}
	notFound(w)
}

func (s *Server) routePub(w http.ResponseWriter, r *http.Request, segments []string) {
	switch {
	case len(segments) == 0:
		if r.Method == http.MethodGet {
			s.handleListPosts(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreatePost(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "search":
		if r.Method == http.MethodGet {
			s.handleSearchPosts(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "user":
		if r.Method == http.MethodGet {
			s.handleOwnPosts(w, r)
			return
		}
	case len(segments) == 1:
		if r.Method == http.MethodGet {
			s.handleGetPost(w, r, segments[0])
			return
		}
	case len(segments) == 2 && segments[1] == "update":
		if r.Method == http.MethodPost {
			s.handleUpdatePost(w, r, segments[0])
			return
		}
	case len(segments) == 2 && segments[1] == "delete":
		if r.Method == http.MethodPost {
			s.handleDeletePost(w, r, segments[0])
			return
		}
	case len(segments) == 2 && segments[1] == "like":
		if r.Method == http.MethodPost {
			s.handleToggleLike(w, r, segments[0])
			return
		}
	case len(segments) == 2 && segments[1] == "comment":
		if r.Method == http.MethodPost {
			s.handleAddComment(w, r, segments[0])
			return
		}
	case len(segments) == 2 && segments[1] == "comments":
		if r.Method == http.MethodGet {
			s.handleListComments(w, r, segments[0])
			return
		}
	case len(segments) == 4 && segments[1] == "comment" && segments[3] == "delete":
		if r.Method == http.MethodPost {
			s.handleDeleteComment(w, r, segments[0], segments[2])
			return
		}
	}
	notFound(w)
}

func (s *Server) routeProfile(w http.ResponseWriter, r *http.Request, segments []string) {
	switch {
	case len(segments) == 1 && segments[0] == "me":
		if r.Method == http.MethodPut {
			s.handleUpdateBio(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "me" && segments[1] == "avatar":
		if r.Method == http.MethodPost {
			s.handleUploadAvatar(w, r)
			return
		}
	case len(segments) == 1:
		if r.Method == http.MethodGet {
			s.handleProfile(w, r, segments[0])
			return
		}
	case len(segments) == 2 && segments[1] == "follow":
		if r.Method == http.MethodPost {
			s.handleToggleFollow(w, r, segments[0])
			return
		}
	}
	notFound(w)
}

func (s *Server) routeNotifications(w http.ResponseWriter, r *http.Request, segments []string) {
	switch {
	case len(segments) == 0:
		if r.Method == http.MethodGet {
			s.handleListNotifications(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "unread-count":
		if r.Method == http.MethodGet {
			s.handleUnreadCount(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "mark-read":
		if r.Method == http.MethodPost {
			s.handleMarkAllRead(w, r)
			return
		}
	case len(segments) == 2 && segments[1] == "read":
		if r.Method == http.MethodPost {
			s.handleMarkRead(w, r, segments[0])
			return
		}
	}
	notFound(w)
}

// handleSignup godoc
//
//	@Summary		Sign up
//	@Description	Create a new account with a unique username and email.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			account	body		object{username=string,email=string,password=string}	true	"Account data"
//	@Success		201		{object}	map[string]string	"Signup successful"
//	@Failure		400		{object}	map[string]string	"Validation error"
//	@Failure		409		{object}	map[string]string	"Username or email taken"
//	@Failure		429		{object}	map[string]string	"Rate limited"
//	@Router			/auth/signup [post]
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.allowAuthRate(w, r) {
		return
	}
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.auth.Signup(r.Context(), req.Username, req.Email, req.Password); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Signup successful"})
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Verify credentials and start a cookie session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		object{username=string,password=string}	true	"Credentials"
//	@Success		200			{object}	map[string]string	"Login successful"
//	@Failure		400			{object}	map[string]string	"Wrong credentials"
//	@Failure		429			{object}	map[string]string	"Rate limited"
//	@Router			/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowAuthRate(w, r) {
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"username": session.Username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("[http] logout: %v", err)
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	user, err := s.store.GetUser(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleDeleteAccount deletes the user and everything hanging off them.
// Stored post images and the avatar are removed first; the row cascade
// handles the rest.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{Author: username})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	for _, post := range posts {
		if post.ImageURL != "" {
			if err := s.uploads.Delete(post.ImageURL); err != nil {
				log.Printf("[http] delete image for post %d: %v", post.ID, err)
			}
		}
	}
	if user, err := s.store.GetUser(r.Context(), username); err == nil && user.AvatarURL != "" {
		if err := s.uploads.Delete(user.AvatarURL); err != nil {
			log.Printf("[http] delete avatar for %s: %v", username, err)
		}
	}

	if err := s.auth.DeleteAccount(r.Context(), username); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

// handleListPosts godoc
//
//	@Summary		List posts
//	@Description	Get all posts, most recently updated first.
//	@Tags			Posts
//	@Produce		json
//	@Success		200	{array}	model.Post
//	@Router			/pub [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleSearchPosts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, []model.Post{})
		return
	}
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{Query: query})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleOwnPosts(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{Author: username})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Description	Publish a post with an optional image (multipart form). Requires a session.
//	@Tags			Posts
//	@Accept			mpfd
//	@Produce		json
//	@Param			title	formData	string	true	"Title (max 200 chars)"
//	@Param			content	formData	string	true	"Content (max 50000 chars)"
//	@Param			image	formData	file	false	"Image (jpeg/jpg/png/gif, max 5MB)"
//	@Success		201		{object}	map[string]any	"Created post"
//	@Failure		400		{object}	map[string]string	"Validation error"
//	@Failure		401		{object}	map[string]string	"Not authenticated"
//	@Router			/pub [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	title, content, file, header, err := s.parsePostForm(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	imageURL := ""
	if file != nil {
		imageURL, err = s.uploads.Save(header.Filename, file)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	now := time.Now()
	post := model.Post{
		Title:          title,
		Content:        content,
		AuthorUsername: username,
		ImageURL:       imageURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := s.store.CreatePost(r.Context(), &post)
	if err != nil {
		// The blob made it to storage but the document didn't; clean up the
		// orphan best-effort.
		if imageURL != "" {
			if derr := s.uploads.Delete(imageURL); derr != nil {
				log.Printf("[http] orphaned image cleanup: %v", derr)
			}
		}
		s.writeDomainError(w, err)
		return
	}
	post.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Post created", "post": post})
}

// handleGetPost godoc
//
//	@Summary		Get a post
//	@Description	Get a post by id with its liked-by set and comments.
//	@Tags			Posts
//	@Produce		json
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	map[string]any
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/pub/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := parseID(idStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, idStr string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(idStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if post.AuthorUsername != username {
		writeError(w, http.StatusForbidden, errors.New("you can only update your own posts"))
		return
	}

	title, content, file, header, err := s.parsePostForm(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	imageURL := post.ImageURL
	if r.FormValue("removeImage") == "true" && imageURL != "" {
		if err := s.uploads.Delete(imageURL); err != nil {
			log.Printf("[http] delete image for post %d: %v", id, err)
		}
		imageURL = ""
	}
	if file != nil {
		if imageURL != "" {
			if err := s.uploads.Delete(imageURL); err != nil {
				log.Printf("[http] delete image for post %d: %v", id, err)
			}
		}
		imageURL, err = s.uploads.Save(header.Filename, file)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	if err := s.store.UpdatePost(r.Context(), id, title, content, imageURL); err != nil {
		s.writeDomainError(w, err)
		return
	}
	post.Title = title
	post.Content = content
	post.ImageURL = imageURL
	writeJSON(w, http.StatusOK, map[string]any{"message": "Post updated", "post": post})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, idStr string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(idStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if post.AuthorUsername != username {
		writeError(w, http.StatusForbidden, errors.New("you can only delete your own posts"))
		return
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if post.ImageURL != "" {
		if err := s.uploads.Delete(post.ImageURL); err != nil {
			log.Printf("[http] delete image for post %d: %v", id, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Post deleted", "post_id": id})
}

// handleToggleLike godoc
//
//	@Summary		Toggle a like
//	@Description	Like the post, or remove your like if it is already there. The author is notified on the like transition.
//	@Tags			Engagement
//	@Produce		json
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	engage.LikeResult
//	@Failure		401	{object}	map[string]string	"Not authenticated"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/pub/{id}/like [post]
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request, idStr string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(idStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.engine.ToggleLike(r.Context(), id, username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAddComment godoc
//
//	@Summary		Comment on a post
//	@Description	Append a comment. The post author is notified unless they wrote the comment themselves.
//	@Tags			Engagement
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Post ID"
//	@Param			comment	body		object{content=string}	true	"Comment (max 500 chars)"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	map[string]string	"Validation error"
//	@Failure		401		{object}	map[string]string	"Not authenticated"
//	@Failure		404		{object}	map[string]string	"Post not found"
//	@Router			/pub/{id}/comment [post]
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, idStr string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(idStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comment, err := s.engine.AddComment(r.Context(), id, username, req.Content)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Comment added", "comment": comment})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := parseID(idStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, post.Comments)
}

// handleDeleteComment godoc
//
//	@Summary		Delete a comment
//	@Description	Remove a comment by id. Allowed for the comment author and the post author.
//	@Tags			Engagement
//	@Produce		json
//	@Param			postId		path		int	true	"Post ID"
//	@Param			commentId	path		int	true	"Comment ID"
//	@Success		200			{object}	map[string]string
//	@Failure		401			{object}	map[string]string	"Not authenticated"
//	@Failure		403			{object}	map[string]string	"Not the comment or post author"
//	@Failure		404			{object}	map[string]string	"Post or comment not found"
//	@Router			/pub/{postId}/comment/{commentId}/delete [post]
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, postIDStr, commentIDStr string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	postID, err := parseID(postIDStr, "post")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	commentID, err := parseID(commentIDStr, "comment")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.DeleteComment(r.Context(), postID, commentID, username); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

// handleProfile godoc
//
//	@Summary		Get a public profile
//	@Description	Profile with follower counts, follow state relative to the viewer, and the user's posts.
//	@Tags			Profiles
//	@Produce		json
//	@Param			username	path		string	true	"Username"
//	@Success		200			{object}	map[string]any
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/profile/{username} [get]
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, username string) {
	user, err := s.store.GetUser(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	followerCount, err := s.store.FollowerCount(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	followingCount, err := s.store.FollowingCount(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	viewer := s.currentUser(r)
	isFollowing := false
	if viewer != "" && viewer != username {
		isFollowing, err = s.store.IsFollowing(r.Context(), viewer, username)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{Author: username})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": model.Profile{
			Username:       user.Username,
			Bio:            user.Bio,
			AvatarURL:      user.AvatarURL,
			FollowerCount:  followerCount,
			FollowingCount: followingCount,
			IsFollowing:    isFollowing,
			IsOwnProfile:   viewer == username,
			CreatedAt:      user.CreatedAt,
		},
		"posts": posts,
	})
}

func (s *Server) handleUpdateBio(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Bio string `json:"bio"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bio := strings.TrimSpace(req.Bio)
	if len(bio) > maxBioLen {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bio must be %d characters or fewer", maxBioLen))
		return
	}
	if err := s.store.UpdateBio(r.Context(), username, bio); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(upload.MaxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("no image file provided"))
		return
	}
	defer file.Close()

	user, err := s.store.GetUser(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if user.AvatarURL != "" {
		if err := s.uploads.Delete(user.AvatarURL); err != nil {
			log.Printf("[http] delete avatar for %s: %v", username, err)
		}
	}

	avatarURL, err := s.uploads.Save(header.Filename, file)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := s.store.UpdateAvatar(r.Context(), username, avatarURL); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Avatar updated", "avatar": avatarURL})
}

// handleToggleFollow godoc
//
//	@Summary		Follow or unfollow a user
//	@Description	Toggle the follow relation. The target is notified on the follow transition only.
//	@Tags			Engagement
//	@Produce		json
//	@Param			username	path		string	true	"Target username"
//	@Success		200			{object}	engage.FollowResult
//	@Failure		400			{object}	map[string]string	"Self-follow"
//	@Failure		401			{object}	map[string]string	"Not authenticated"
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/profile/{username}/follow [post]
func (s *Server) handleToggleFollow(w http.ResponseWriter, r *http.Request, target string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	result, err := s.engine.ToggleFollow(r.Context(), username, target)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	notifications, err := s.store.ListNotifications(r.Context(), username, 30)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	count, err := s.store.CountUnread(r.Context(), username)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.store.MarkAllRead(r.Context(), username); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, idStr string) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(idStr, "notification")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.MarkRead(r.Context(), id, username); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// handleSocket upgrades the request and binds the connection to the session
// user. Messages from the client are discarded; the socket only carries
// server pushes.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[http] websocket upgrade: %v", err)
		return
	}

	s.hub.Register(username, conn)
	defer func() {
		s.hub.Unregister(username, conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) parsePostForm(r *http.Request) (title, content string, file multipart.File, header *multipart.FileHeader, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, upload.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(upload.MaxImageBytes); err != nil {
		return "", "", nil, nil, errors.New("invalid multipart form")
	}

	title = strings.TrimSpace(r.FormValue("title"))
	content = strings.TrimSpace(r.FormValue("content"))
	if title == "" {
		return "", "", nil, nil, &engage.ValidationError{Reason: "title is required"}
	}
	if len(title) > maxTitleLen {
		return "", "", nil, nil, &engage.ValidationError{Reason: fmt.Sprintf("title must be %d characters or fewer", maxTitleLen)}
	}
	if content == "" {
		return "", "", nil, nil, &engage.ValidationError{Reason: "content is required"}
	}
	if len(content) > maxContentLen {
		return "", "", nil, nil, &engage.ValidationError{Reason: fmt.Sprintf("content must be %d characters or fewer", maxContentLen)}
	}

	file, header, ferr := r.FormFile("image")
	if ferr != nil {
		if errors.Is(ferr, http.ErrMissingFile) {
			return title, content, nil, nil, nil
		}
		return "", "", nil, nil, errors.New("invalid image upload")
	}
	return title, content, file, header, nil
}

func (s *Server) allowAuthRate(w http.ResponseWriter, r *http.Request) bool {
	limits := s.cfg.RateLimits
	if limits.AuthPerWindow <= 0 {
		return true
	}
	key := "auth:ip:" + s.clientIP(r)
	if ok, retry := s.limiter.Allow(key, limits.AuthPerWindow, limits.AuthWindow); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

// currentUser resolves the session cookie to a username, or "" when the
// request carries no valid session.
func (s *Server) currentUser(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	username, err := s.auth.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		return ""
	}
	return username
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := s.currentUser(r)
	if username == "" {
		writeError(w, http.StatusUnauthorized, errors.New("not authenticated, please log in"))
		return "", false
	}
	return username, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeDomainError translates the error taxonomy to HTTP statuses. Anything
// unrecognized is logged and reported as a generic internal error.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var engageValidation *engage.ValidationError
	var authValidation *auth.ValidationError

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engage.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.As(err, &engageValidation), errors.As(err, &authValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrDuplicateUsername), errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, upload.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err)
	default:
		log.Printf("[http] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("an internal server error occurred"))
	}
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": int(retry.Seconds()),
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func parseID(value, kind string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id", kind)
	}
	return id, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
