package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/hushroom/internal/handlers/dto"
	"github.com/thereayou/hushroom/internal/websocket"
	"github.com/thereayou/hushroom/pkg/domain"
	"github.com/thereayou/hushroom/pkg/protocol"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPeer struct {
	id     uuid.UUID
	mu     sync.Mutex
	frames []protocol.Event
}

func newRecordingPeer() *recordingPeer { return &recordingPeer{id: uuid.New()} }

func (p *recordingPeer) ID() uuid.UUID { return p.id }
func (p *recordingPeer) Close()        {}

func (p *recordingPeer) Send(raw []byte) error {
	evt, err := protocol.DecodeEvent(raw)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, evt)
	return nil
}

func (p *recordingPeer) take() []protocol.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.frames
	p.frames = nil
	return out
}

func userFixture(id, name string) domain.User {
	return domain.User{ID: id, Username: name}
}

func TestMessageHandler_Dispatch(t *testing.T) {
	req := require.New(t)
	hub := websocket.NewHub(discardLogger(), nil, websocket.Options{})
	h := NewMessageHandler(hub, discardLogger())
	pa, pb := newRecordingPeer(), newRecordingPeer()

	req.NoError(h.HandleMessage(pa, []byte(`{"type":"create_room","user":{"id":"a","username":"Alice"}}`)))
	evts := pa.take()
	req.Len(evts, 1)
	roomID := evts[0].(protocol.RoomCreated).RoomID
	req.Len(roomID, 8)

	req.NoError(h.HandleMessage(pb, []byte(`{"type":"join_room","roomId":"`+roomID+`","user":{"id":"b","username":"Bob"}}`)))
	req.IsType(protocol.RoomJoined{}, pb.take()[0])
	req.IsType(protocol.UserJoined{}, pa.take()[0])

	req.NoError(h.HandleMessage(pb, []byte(`{"type":"send_message","roomId":"`+roomID+`","messageData":{"text":"  hey  "}}`)))
	for _, p := range []*recordingPeer{pa, pb} {
		evts := p.take()
		req.Len(evts, 1)
		msg := evts[0].(protocol.NewMessage).Message
		req.Equal("hey", msg.Text)
		req.Equal("b", msg.UserID)
	}

	req.NoError(h.HandleMessage(pb, []byte(`{"type":"leave_room","roomId":"`+roomID+`"}`)))
	req.Equal([]protocol.Event{protocol.NewRoomClosed(protocol.ReasonParticipantLeft)}, pa.take())
}

func TestMessageHandler_Errors(t *testing.T) {
	hub := websocket.NewHub(discardLogger(), nil, websocket.Options{})
	h := NewMessageHandler(hub, discardLogger())
	p := newRecordingPeer()

	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"not json", `{{`, "Invalid message format"},
		{"missing user", `{"type":"join_room","roomId":"R1"}`, "Invalid message format"},
		{"empty text", `{"type":"send_message","roomId":"R1","messageData":{"text":"   "}}`, "Invalid message format"},
		{"missing room", `{"type":"send_message","roomId":"nonexistent","messageData":{"text":"hi"}}`, "Room not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.HandleMessage(p, []byte(tt.raw))
			require.Error(t, err)
			require.Equal(t, tt.message, websocket.ClientErrorMessage(err))
		})
	}

	require.NoError(t, h.HandleMessage(p, []byte(`{"type":"typing","roomId":"R1"}`)), "unknown types are ignored")
	require.Empty(t, p.take())
}

func TestOriginPolicy(t *testing.T) {
	policy := NewOriginPolicy([]string{"https://Chat.Example", "not a url", " "}, discardLogger())

	check := func(origin string) bool {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return policy.Check(r)
	}

	require.True(t, check("https://chat.example"))
	require.True(t, check("HTTPS://CHAT.EXAMPLE"))
	require.False(t, check("https://evil.example"))
	require.False(t, check("garbage"))
	require.True(t, check(""), "non-browser clients send no origin")

	all := NewOriginPolicy([]string{"*"}, discardLogger())
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	require.True(t, all.Check(r))
}

func TestHealthAndRoomHandlers(t *testing.T) {
	req := require.New(t)
	hub := websocket.NewHub(discardLogger(), nil, websocket.Options{})
	hub.JoinRoom(newRecordingPeer(), "R1", userFixture("a", "Alice"))

	r := gin.New()
	r.GET("/health", NewHealthHandler(hub).Health)
	r.GET("/api/rooms/:id", NewRoomHandler(hub).GetRoom)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	req.Equal(http.StatusOK, w.Code)
	var health dto.HealthResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &health))
	req.Equal(dto.HealthResponse{Status: "healthy", Rooms: 1, Connections: 0}, health)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/R1", nil))
	req.Equal(http.StatusOK, w.Code)
	var info dto.RoomInfo
	req.NoError(json.Unmarshal(w.Body.Bytes(), &info))
	req.Equal("R1", info.ID)
	req.Equal(1, info.Participants)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/nope", nil))
	req.Equal(http.StatusNotFound, w.Code)
	req.JSONEq(`{"error":"room not found"}`, w.Body.String())
}

func TestStaticHandler(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<!doctype html><title>app</title>"), 0o644))
	req.NoError(os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	req.NoError(os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))
	req.NoError(os.WriteFile(filepath.Join(dir, "assets", "logo"), []byte("\x89PNG\r\n\x1a\n0000"), 0o644))

	r := gin.New()
	r.NoRoute(NewStaticHandler(dir).Serve)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/assets/app.js")
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Header().Get("Content-Type"), "javascript")

	w = get("/assets/logo")
	req.Equal(http.StatusOK, w.Code)
	req.Equal("image/png", w.Header().Get("Content-Type"))

	w = get("/room/ABCD1234")
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), "<title>app</title>")
}

func TestStaticHandler_NoAssets(t *testing.T) {
	r := gin.New()
	r.NoRoute(NewStaticHandler(t.TempDir()).Serve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}
