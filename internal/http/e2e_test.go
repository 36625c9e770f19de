package httpapp

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noesis-social/noesis/internal/model"
)

// dialSocket connects to /ws carrying the client's session cookie.
func dialSocket(t *testing.T, app *testApp, client *http.Client) *websocket.Conn {
	t.Helper()
	serverURL, err := url.Parse(app.server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	header := http.Header{}
	for _, cookie := range client.Jar.Cookies(serverURL) {
		header.Add("Cookie", cookie.String())
	}

	wsURL := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial websocket: %v (status %d)", err, status)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitForSocket blocks until the hub has registered the user's connection.
func waitForSocket(t *testing.T, app *testApp, username string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if app.hub.Connected(username) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket for %s never registered", username)
}

func TestSocketRequiresSession(t *testing.T) {
	app := newTestApp(t)

	wsURL := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestSocketReceivesNotifications(t *testing.T) {
	app := newTestApp(t)
	alice := app.signupAndLogin(t, "alice")
	bob := app.signupAndLogin(t, "bob")
	postID := app.createPost(t, alice, "Watched Post", "content")

	conn := dialSocket(t, app, alice)
	waitForSocket(t, app, "alice")

	resp := app.postJSON(t, bob, fmt.Sprintf("/pub/%d/like", postID), nil)
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Event        string             `json:"event"`
		Notification model.Notification `json:"notification"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read notification frame: %v", err)
	}
	if event.Event != "notification" {
		t.Fatalf("unexpected event: %q", event.Event)
	}
	n := event.Notification
	if n.Recipient != "alice" || n.Sender != "bob" || n.Type != model.NotifyLike {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if n.PostID == nil || *n.PostID != postID {
		t.Fatalf("unexpected post id: %v", n.PostID)
	}

	// the sender's own socket stays quiet
	bobConn := dialSocket(t, app, bob)
	waitForSocket(t, app, "bob")
	resp = app.postJSON(t, bob, fmt.Sprintf("/pub/%d/comment", postID), map[string]string{"content": "hello"})
	resp.Body.Close()

	_ = bobConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if err := bobConn.ReadJSON(&event); err == nil {
		t.Fatalf("bob should not receive his own notification, got %+v", event)
	}
}

func TestSocketReplacesPreviousConnection(t *testing.T) {
	app := newTestApp(t)
	alice := app.signupAndLogin(t, "alice")
	bob := app.signupAndLogin(t, "bob")
	postID := app.createPost(t, alice, "Reconnect Post", "content")

	first := dialSocket(t, app, alice)
	waitForSocket(t, app, "alice")
	second := dialSocket(t, app, alice)

	// the first connection is closed on replacement
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("expected first connection to be closed")
	}

	resp := app.postJSON(t, bob, fmt.Sprintf("/pub/%d/like", postID), nil)
	resp.Body.Close()

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Event string `json:"event"`
	}
	if err := second.ReadJSON(&event); err != nil {
		t.Fatalf("read on second connection: %v", err)
	}
	if event.Event != "notification" {
		t.Fatalf("unexpected event: %q", event.Event)
	}
}
