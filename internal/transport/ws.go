package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsMaxPayloadBytes = 1 << 20
	wsWriteWait       = 10 * time.Second
	wsPongWait        = 45 * time.Second
	wsPingInterval    = wsPongWait * 9 / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleJSONRPCWebSocket answers the WebSocket-upgrade half of "/acp"
// (spec.md §6: "Over HTTP POST and WebSocket upgrade on the same path"),
// grounded on the teacher's wsControlPlane.ServeHTTP/wsSession (internal/
// gateway/ws_control_plane.go): an upgrade, a buffered send channel
// drained by a dedicated write goroutine so a slow client can't block
// reads, and a read/pong deadline pair to detect dead connections. Frames
// are plain JSON-RPC 2.0 objects (rpcRequest in, rpcResponse/
// rpcNotification out), not the teacher's bespoke wsFrame envelope.
func (s *Server) handleJSONRPCWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sessionID := r.Header.Get("Acp-Session-Id")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan []byte, 64)
	go wsWriteLoop(conn, send)
	defer close(send)

	conn.SetReadLimit(wsMaxPayloadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	dispatcher := &rpcDispatcher{server: s}
	notify := func(n rpcNotification) {
		if data, err := json.Marshal(n); err == nil {
			wsTrySend(send, data)
		}
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if resp, merr := json.Marshal(errorResponse(nil, rpcParseError, "invalid JSON")); merr == nil {
				wsTrySend(send, resp)
			}
			continue
		}

		resp := dispatcher.dispatch(ctx, sessionID, req, notify)
		if resp == nil {
			continue
		}
		if data, err := json.Marshal(resp); err == nil {
			wsTrySend(send, data)
		}
	}
}

func wsTrySend(send chan<- []byte, data []byte) {
	select {
	case send <- data:
	default:
	}
}

func wsWriteLoop(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
