package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"examflow/internal/exam"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// frame is one message on the staff stream.
type frame struct {
	Type  string         `json:"type"`
	Data  *exam.Snapshot `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

func (a *API) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(a.origins) == 0 {
				return true
			}
			for _, o := range a.origins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// streamExams pushes a full snapshot of the collection on connect and after
// every change. A subscription failure is sent as an error frame before the
// socket is closed.
func (a *API) streamExams(c *gin.Context) {
	conn, err := a.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(a.base)
	defer cancel()

	sub, err := a.exams.Subscribe(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("exam subscription failed")
		writeFrame(conn, frame{Type: "error", Error: "Failed to load exams"})
		return
	}
	defer sub.Close()

	go readPump(conn, cancel)
	a.writePump(conn, sub)
}

// readPump discards client messages and cancels the stream when the peer
// goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (a *API) writePump(conn *websocket.Conn, sub *exam.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				if err := sub.Err(); err != nil {
					writeFrame(conn, frame{Type: "error", Error: "Failed to load exams"})
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := writeFrame(conn, frame{Type: "snapshot", Data: &snap}); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
