// Package notify persists notifications and fans them out to live
// connections. The stored row is the source of truth; the push is a latency
// optimization only.
package notify

import (
	"context"
	"log"

	"github.com/noesis-social/noesis/internal/model"
	"github.com/noesis-social/noesis/internal/store"
)

// Pusher delivers a payload to a user's live connection, if any.
type Pusher interface {
	SendTo(username string, payload any) bool
}

type Service struct {
	store  store.NotificationStore
	pusher Pusher
}

func NewService(st store.NotificationStore, pusher Pusher) *Service {
	return &Service{store: st, pusher: pusher}
}

// Event is the envelope pushed over the socket.
type Event struct {
	Event        string             `json:"event"`
	Notification model.Notification `json:"notification"`
}

// Notify persists n, then attempts delivery. Neither a missing recipient
// connection nor a failed write surfaces to the caller.
func (s *Service) Notify(ctx context.Context, n model.Notification) {
	id, err := s.store.CreateNotification(ctx, &n)
	if err != nil {
		log.Printf("[notify] persist %s notification for %s: %v", n.Type, n.Recipient, err)
		return
	}
	n.ID = id
	s.pusher.SendTo(n.Recipient, Event{Event: "notification", Notification: n})
}
