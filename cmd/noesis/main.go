package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noesis-social/noesis/internal/auth"
	"github.com/noesis-social/noesis/internal/config"
	"github.com/noesis-social/noesis/internal/engage"
	httpapp "github.com/noesis-social/noesis/internal/http"
	"github.com/noesis-social/noesis/internal/notify"
	"github.com/noesis-social/noesis/internal/push"
	"github.com/noesis-social/noesis/internal/rate"
	"github.com/noesis-social/noesis/internal/store/sqlite"
	"github.com/noesis-social/noesis/internal/upload"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-h", "--help", "help":
			printUsage()
			return
		case "-v", "--version", "version":
			fmt.Println("noesis v0.1.0")
			return
		}
	}
	runServer()
}

func printUsage() {
	fmt.Println(`noesis - Social blogging platform

Usage: noesis [command]

Commands:
  server              Start the Noesis server (default if no command)

Environment Variables:
  NOESIS_ADDR             Listen address (default: :5000, or PORT)
  NOESIS_DB               Database path (default: noesis.db)
  NOESIS_UPLOAD_DIR       Image upload directory (default: uploads)
  NOESIS_CLIENT_ORIGIN    Allowed browser origin (default: http://localhost:5173)
  NOESIS_SESSION_TTL      Session lifetime (default: 168h)
  NOESIS_RL_AUTH_PER_WINDOW  Auth requests per window per IP (default: 100)
  NOESIS_RL_AUTH_WINDOW      Auth rate window (default: 15m)`)
}

func runServer() {
	cfg := config.Load()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer store.Close()

	uploads, err := upload.NewDisk(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("failed to prepare upload dir: %v", err)
	}

	hub := push.NewHub()
	defer hub.Close()

	notifier := notify.NewService(store, hub)
	engine := engage.New(store, notifier)
	authSvc := auth.NewService(store, cfg.SessionTTL)
	limiter := rate.NewMemory()

	server := httpapp.NewServer(store, authSvc, engine, hub, uploads, limiter, cfg)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("noesis listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
