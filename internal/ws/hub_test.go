package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"meeting-chat/internal/models"
	"meeting-chat/internal/registry"
	"meeting-chat/internal/repositories"
)

// newServerConn returns the server side of a live websocket pair and the client side.
func newServerConn(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-serverConns:
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("server connection not established")
		return nil, nil
	}
}

func TestHubAddSendAndRemove(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, client := newServerConn(t)

	hub.Add(ConnInfo{ConnID: "c1", MeetingID: "m1"}, server)
	require.Equal(t, 1, hub.Len())

	require.NoError(t, hub.Send(context.Background(), "c1", []byte(`{"type":"message"}`)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"message"}`, string(data))

	require.True(t, hub.Remove("c1"))
	require.False(t, hub.Remove("c1"))
	require.Equal(t, 0, hub.Len())
}

func TestHubSendUnknownConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	err := hub.Send(context.Background(), "ghost", []byte("x"))
	require.ErrorIs(t, err, ErrConnectionGone)
}

func TestHubSendOnBrokenConnectionDropsIt(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, _ := newServerConn(t)
	hub.Add(ConnInfo{ConnID: "c1", MeetingID: "m1"}, server)

	server.Close()

	err := hub.Send(context.Background(), "c1", []byte("x"))
	require.Error(t, err)
	require.Equal(t, 0, hub.Len())
}

func TestHubSendHonoursCancelledContext(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, _ := newServerConn(t)
	hub.Add(ConnInfo{ConnID: "c1"}, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, hub.Send(ctx, "c1", []byte("x")), context.Canceled)
	require.Equal(t, 1, hub.Len())
}

func TestMeetingWebSocketLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := repositories.NewMemoryConnectionRepo()
	reg := registry.NewService(repo, zerolog.Nop())
	hub := NewHub(zerolog.Nop())
	handler := NewMeetingWebSocketHandler(hub, reg, zerolog.Nop())

	r := gin.New()
	r.GET("/ws/meetings/:meeting_id", handler.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/meetings/meet1?participant_id=p1"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var welcome struct {
		Type string                  `json:"type"`
		Data models.ConnectedPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &welcome))
	require.Equal(t, "connected", welcome.Type)
	require.Equal(t, "meet1", welcome.Data.MeetingID)
	require.NotEmpty(t, welcome.Data.ConnectionID)

	active, err := reg.ListActiveByMeeting(context.Background(), "meet1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "p1", active[0].ParticipantID)

	require.NoError(t, client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	client.Close()

	require.Eventually(t, func() bool {
		active, err := reg.ListActiveByMeeting(context.Background(), "meet1")
		return err == nil && len(active) == 0
	}, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, 0, hub.Len())

	conn, err := reg.Get(context.Background(), welcome.Data.ConnectionID)
	require.NoError(t, err)
	require.False(t, conn.Active)
}

func TestMeetingWebSocketBindsLateParticipant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.NewService(repositories.NewMemoryConnectionRepo(), zerolog.Nop())
	hub := NewHub(zerolog.Nop())
	handler := NewMeetingWebSocketHandler(hub, reg, zerolog.Nop())

	r := gin.New()
	r.GET("/ws/meetings/:meeting_id", handler.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/meetings/meet1", nil)
	require.NoError(t, err)
	defer client.Close()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = client.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"bind","data":{"participantId":"late"}}`)))

	require.Eventually(t, func() bool {
		active, err := reg.ListActiveByMeeting(context.Background(), "meet1")
		return err == nil && len(active) == 1 && active[0].ParticipantID == "late"
	}, 2*time.Second, 20*time.Millisecond)
}

// sendOnConnect pushes a frame through the hub from inside Connect, the way a
// dispatch resolving the new connection would.
type sendOnConnect struct {
	*registry.Service
	hub  *Hub
	sent chan error
}

func (r *sendOnConnect) Connect(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	conn, err := r.Service.Connect(ctx, connectionID, meetingID, participantID)
	if err != nil {
		return conn, err
	}
	r.sent <- r.hub.Send(ctx, connectionID, []byte(`{"type":"message"}`))
	return conn, nil
}

type failingRegistry struct {
	*registry.Service
}

func (failingRegistry) Connect(ctx context.Context, connectionID, meetingID, participantID string) (models.Connection, error) {
	return models.Connection{}, errors.New("store down")
}

func dialMeeting(t *testing.T, handler *MeetingWebSocketHandler) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/meetings/:meeting_id", handler.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/meetings/meet1?participant_id=p1", nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestMeetingWebSocketDeliverableOnceRegistered(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	reg := &sendOnConnect{Service: registry.NewService(repositories.NewMemoryConnectionRepo(), zerolog.Nop()), hub: hub, sent: make(chan error, 1)}
	client := dialMeeting(t, NewMeetingWebSocketHandler(hub, reg, zerolog.Nop()))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"message"}`, string(data))
	require.NoError(t, <-reg.sent)

	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), `"connected"`)
}

func TestMeetingWebSocketRegistrationFailureReleasesHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	reg := failingRegistry{Service: registry.NewService(repositories.NewMemoryConnectionRepo(), zerolog.Nop())}
	client := dialMeeting(t, NewMeetingWebSocketHandler(hub, reg, zerolog.Nop()))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr))
	require.Equal(t, 0, hub.Len())
}
