package feed

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

const (
	writeTimeout           = 5 * time.Second
	maxDecodeErrorsPerConn = 3
)

type wsPeer struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn, encoder: json.NewEncoder(conn)}
}

func (p *wsPeer) writeFrame(f frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.encoder.Encode(f)
}

// NewHandler serves /up and the /ws subscription endpoint for hub.
func NewHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

func handleWSConn(conn *websocket.Conn, hub *Hub) {
	defer func() {
		_ = conn.Close()
	}()

	peer := newWSPeer(conn)
	sub := hub.join(peer)
	defer hub.leave(sub)
	go func() {
		hub.deliver(sub)
		// Unblocks the read loop when the subscriber was dropped.
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var in frame
		if err := decoder.Decode(&in); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeError(peer, hub, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			decoder = json.NewDecoder(conn)
			continue
		}
		decodeErrors = 0

		switch in.Type {
		case "feed.ping":
			_ = peer.writeFrame(frame{Type: "feed.pong", RequestID: in.RequestID})
		default:
			_ = writeError(peer, hub, in.RequestID, "INVALID_ARGUMENT", "unknown frame type")
		}
	}
}

func writeError(peer *wsPeer, hub *Hub, requestID, code, message string) error {
	var env errorEnvelope
	env.Error.Code = code
	env.Error.Message = message
	return peer.writeFrame(frame{Type: "feed.error", RequestID: requestID, Payload: mustJSON(hub.logger, env)})
}
