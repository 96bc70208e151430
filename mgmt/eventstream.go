package mgmt

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/face"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// faceEvent is pushed to every connected client on a Face state transition.
type faceEvent struct {
	FaceID   uint64 `json:"faceId"`
	OldState string `json:"oldState"`
	NewState string `json:"newState"`
}

// EventStream pushes Face lifecycle signals to connected WebSocket clients,
// an observability channel distinct from the forwarding-plane transports
// (spec (expansion): wires gorilla/websocket, carried by the teacher's
// go.mod but not otherwise exercised by this module).
type EventStream struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewEventStream constructs an empty EventStream.
func NewEventStream() *EventStream {
	return &EventStream{clients: make(map[*websocket.Conn]struct{})}
}

func (es *EventStream) String() string { return "mgmt-eventstream" }

// ServeHTTP upgrades the connection and registers it as a subscriber until
// it disconnects.
func (es *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.Log.Warn(es, "websocket upgrade failed", "err", err)
		return
	}
	es.mu.Lock()
	es.clients[conn] = struct{}{}
	es.mu.Unlock()

	go es.drainUntilClosed(conn)
}

// drainUntilClosed discards any client-sent frames (this stream is
// publish-only) until the connection errors out, then deregisters it.
func (es *EventStream) drainUntilClosed(conn *websocket.Conn) {
	defer func() {
		es.mu.Lock()
		delete(es.clients, conn)
		es.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// Subscribe wires a Face's AfterStateChange signal to broadcast events to
// every connected client.
func (es *EventStream) Subscribe(f *face.Face) {
	f.AfterStateChange.Connect(func(sc face.StateChange) {
		es.broadcast(faceEvent{
			FaceID:   sc.Face.ID(),
			OldState: sc.OldState.String(),
			NewState: sc.NewState.String(),
		})
	})
}

func (es *EventStream) broadcast(ev faceEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	for conn := range es.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			delete(es.clients, conn)
		}
	}
}
