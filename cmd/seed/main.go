package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/noesis-social/noesis/internal/auth"
	"github.com/noesis-social/noesis/internal/engage"
	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/notify"
	"github.com/noesis-social/noesis/internal/push"
	"github.com/noesis-social/noesis/internal/store/sqlite"
)

var users = []struct {
	username string
	email    string
	bio      string
}{
	{"alice", "alice@example.com", "Writing about distributed systems and coffee."},
	{"bob", "bob@example.com", "Photographer. Mostly birds."},
	{"carol", "carol@example.com", "Indie game dev, devlog enthusiast."},
	{"dave", "dave@example.com", "I review books nobody asked me to review."},
	{"erin", "erin@example.com", ""},
}

var posts = []struct {
	title   string
	content string
}{
	{"Why I switched back to a paper notebook", "After three years of task apps I went back to paper. Here is what changed and what I miss."},
	{"A week of birding on the coast", "Fifty-two species in seven days. The highlight was a pair of peregrines hunting over the cliffs at dawn."},
	{"Devlog #12: pathfinding that finally works", "I rewrote the navigation mesh for the third time. This version handles moving obstacles without the jitter."},
	{"Book review: The Left Hand of Darkness", "Fifty years on and it still reads like it was written tomorrow. Some thoughts on Le Guin's best."},
	{"Cold brew ratios, tested properly", "I ran a blind tasting across five ratios. The results surprised me and my kitchen still smells of coffee."},
	{"The case for boring technology", "Every new dependency is a liability. A defense of the stack you already know."},
	{"Sketching birds from bad photos", "My reference photos are terrible and that turns out to be fine. Blurry wings teach gesture."},
	{"What shipping a demo taught me", "The demo took longer than the game. Notes on cutting scope when everything feels essential."},
}

var comments = []string{
	"Great post, this matches my experience exactly.",
	"I'm not convinced, but you argue it well.",
	"Do you have a follow-up planned? I'd read it.",
	"This is the push I needed to try it myself.",
	"Lovely writing as always.",
	"Bookmarked. Thanks for the detail.",
	"Disagree on the last point but the rest is spot on.",
	"More posts like this, please.",
}

func main() {
	dbPath := flag.String("db", "noesis.db", "Database path")
	flag.Parse()

	log.Printf("Seeding database %s...", *dbPath)

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	hub := push.NewHub()
	defer hub.Close()

	authSvc := auth.NewService(store, 7*24*time.Hour)
	engine := engage.New(store, notify.NewService(store, hub))

	for _, u := range users {
		if _, err := authSvc.Signup(ctx, u.username, u.email, "password123"); err != nil {
			log.Fatalf("signup %s: %v", u.username, err)
		}
		if u.bio != "" {
			if err := store.UpdateBio(ctx, u.username, u.bio); err != nil {
				log.Fatalf("bio %s: %v", u.username, err)
			}
		}
		log.Printf("✓ Created user: %s", u.username)
	}

	var postIDs []int64
	for _, p := range posts {
		author := users[rand.Intn(len(users))].username
		now := time.Now()
		post := model.Post{
			Title:          p.title,
			Content:        p.content,
			AuthorUsername: author,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		id, err := store.CreatePost(ctx, &post)
		if err != nil {
			log.Fatalf("create post: %v", err)
		}
		postIDs = append(postIDs, id)
		log.Printf("✓ Post #%d: %s (by %s)", id, p.title, author)

		// Small delay to spread out created_at times
		time.Sleep(20 * time.Millisecond)
	}

	for _, id := range postIDs {
		for i := rand.Intn(4); i > 0; i-- {
			actor := users[rand.Intn(len(users))].username
			if _, err := engine.ToggleLike(ctx, id, actor); err != nil {
				log.Printf("✗ like post %d: %v", id, err)
			}
		}
		for i := rand.Intn(3); i > 0; i-- {
			actor := users[rand.Intn(len(users))].username
			text := comments[rand.Intn(len(comments))]
			if _, err := engine.AddComment(ctx, id, actor, text); err != nil {
				log.Printf("✗ comment on post %d: %v", id, err)
			}
		}
	}

	for _, u := range users {
		for i := rand.Intn(3); i > 0; i-- {
			target := users[rand.Intn(len(users))].username
			if target == u.username {
				continue
			}
			if _, err := engine.ToggleFollow(ctx, u.username, target); err != nil {
				log.Printf("✗ follow %s -> %s: %v", u.username, target, err)
			}
		}
	}

	log.Println("Done.")
}
