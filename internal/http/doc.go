// Package httpapp provides the HTTP server for Noesis.
//
//	@title						Noesis API
//	@version					1.0
//	@description				A social blogging platform: posts with images, likes, comments, follows, and real-time notifications.
//	@description
//	@description				## Authentication
//	@description
//	@description				Authentication is cookie based. Sign up, then log in to receive a session cookie:
//	@description				```bash
//	@description				curl -X POST /auth/signup -d '{"username":"alice","email":"alice@example.com","password":"secret1"}'
//	@description				curl -c jar -X POST /auth/login -d '{"username":"alice","password":"secret1"}'
//	@description				```
//	@description				Send the cookie with every write request:
//	@description				```bash
//	@description				curl -b jar -X POST /pub/1/like
//	@description				```
//	@description
//	@description				## Real-time notifications
//	@description				Connect a websocket to `/ws` with the session cookie. Likes, comments, and
//	@description				follows on your content arrive as `{"event":"notification",...}` frames.
//
//	@contact.name				Noesis
//	@license.name				MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@tag.name					Auth
//	@tag.description			Account lifecycle and cookie sessions. Login and signup are rate limited per client IP.
//
//	@tag.name					Posts
//	@tag.description			Create, browse, search, update, and delete posts. Posts carry an optional image.
//
//	@tag.name					Engagement
//	@tag.description			Likes, comments, and follows. Toggle semantics; the affected user is notified on positive transitions.
//
//	@tag.name					Profiles
//	@tag.description			Public profiles with bio, avatar, follower counts, and the user's posts.
//
//	@tag.name					Notifications
//	@tag.description			Persisted notification feed with unread counts and read markers.
package httpapp
