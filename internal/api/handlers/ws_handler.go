package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yoockh/callsplit/internal/models"
	"github.com/yoockh/callsplit/internal/services"
	"github.com/yoockh/callsplit/internal/workers"
)

// StatusSubscriber is satisfied by *workers.RedisSubscriber. Subscribe must
// not return before the subscription is live.
type StatusSubscriber interface {
	Subscribe(ctx context.Context, recordingID string) (workers.StatusStream, error)
}

type WSHandler struct {
	recordings services.RecordingService
	subs       StatusSubscriber
	upgrader   websocket.Upgrader
}

func NewWSHandler(recordings services.RecordingService, subs StatusSubscriber) *WSHandler {
	return &WSHandler{
		recordings: recordings,
		subs:       subs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func finished(s models.RecordingStatus) bool {
	return s == models.RecordingDone || s == models.RecordingFailed
}

// RecordingWS streams status events for one recording until it finishes
// or the client goes away.
func (h *WSHandler) RecordingWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	recordingID := c.Param("recording_id")
	if _, err := h.recordings.Get(c.Request.Context(), userID, recordingID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The subscription is live before the snapshot is read, so a transition
	// published in between is either in the snapshot or on the stream.
	stream, err := h.subs.Subscribe(ctx, recordingID)
	if err != nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"status stream unavailable"}`))
		return
	}
	defer stream.Close()

	rec, err := h.recordings.Get(ctx, userID, recordingID)
	if err != nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","message":"failed to load recording"}`))
		return
	}

	first, _ := json.Marshal(workers.StatusEvent{
		Type:        "status",
		RecordingID: rec.RecordingID,
		Status:      string(rec.Status),
		Message:     rec.Error,
	})
	if err := wc.writeText(first); err != nil {
		return
	}
	if finished(rec.Status) {
		closeWith(wc, string(rec.Status))
		return
	}

	// reader: only detects close; clients do not send anything
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	msgs := stream.Messages()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := wc.writeText([]byte(m)); err != nil {
				return
			}
			var ev workers.StatusEvent
			if json.Unmarshal([]byte(m), &ev) == nil && finished(models.RecordingStatus(ev.Status)) {
				closeWith(wc, ev.Status)
				return
			}
		}
	}
}

func closeWith(wc *wsConn, reason string) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	_ = wc.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second))
}
