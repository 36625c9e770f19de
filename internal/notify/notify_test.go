package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/noesis-social/noesis/internal/model"
)

type fakeNotificationStore struct {
	created []model.Notification
	nextID  int64
	err     error
}

func (f *fakeNotificationStore) CreateNotification(_ context.Context, n *model.Notification) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.created = append(f.created, *n)
	return f.nextID, nil
}

func (f *fakeNotificationStore) ListNotifications(context.Context, string, int) ([]model.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationStore) CountUnread(context.Context, string) (int, error) { return 0, nil }
func (f *fakeNotificationStore) MarkRead(context.Context, int64, string) error    { return nil }
func (f *fakeNotificationStore) MarkAllRead(context.Context, string) error        { return nil }

type fakePusher struct {
	sent []any
	to   []string
}

func (f *fakePusher) SendTo(username string, payload any) bool {
	f.to = append(f.to, username)
	f.sent = append(f.sent, payload)
	return true
}

func TestNotifyPersistsThenPushes(t *testing.T) {
	st := &fakeNotificationStore{}
	pusher := &fakePusher{}
	svc := NewService(st, pusher)

	svc.Notify(context.Background(), model.Notification{
		Recipient: "alice",
		Sender:    "bob",
		Type:      model.NotifyLike,
		CreatedAt: time.Now(),
	})

	if len(st.created) != 1 {
		t.Fatalf("expected 1 persisted notification, got %d", len(st.created))
	}
	if len(pusher.sent) != 1 || pusher.to[0] != "alice" {
		t.Fatalf("expected 1 push to alice, got %v", pusher.to)
	}

	event, ok := pusher.sent[0].(Event)
	if !ok {
		t.Fatalf("unexpected payload type: %T", pusher.sent[0])
	}
	if event.Event != "notification" {
		t.Fatalf("unexpected event name: %q", event.Event)
	}
	// the pushed notification carries the assigned id
	if event.Notification.ID != 1 {
		t.Fatalf("expected id 1, got %d", event.Notification.ID)
	}
}

func TestNotifySkipsPushWhenPersistFails(t *testing.T) {
	st := &fakeNotificationStore{err: errors.New("disk full")}
	pusher := &fakePusher{}
	svc := NewService(st, pusher)

	svc.Notify(context.Background(), model.Notification{Recipient: "alice", Type: model.NotifyFollow})

	if len(pusher.sent) != 0 {
		t.Fatal("push must not happen when the row was not persisted")
	}
}
