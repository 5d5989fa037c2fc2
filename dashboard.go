package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// dashboardUpgrader mirrors the teacher's permissive-origin upgrader: this
// is a trusted-operator tool on the same network as the three core ports,
// not a public-facing endpoint, so it carries the same trust model as
// those raw TCP ports rather than adding its own auth layer.
var dashboardUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// dashboardClient is one connected operator-panel subscriber.
type dashboardClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Dashboard is the optional operator-facing WebSocket endpoint: it sends a
// JSON store Snapshot to each client on connect, then mirrors as JSON the
// list transitions the player's tick emits (end-of-list IDLE). Transitions
// emitted by the queue server (LOADING, READY, cancel-to-IDLE) are not
// mirrored, and no player counters are sent after the initial snapshot.
// No spec operation depends on this; a slow or non-draining client has its
// frames dropped rather than ever blocking the player (see broadcast).
type Dashboard struct {
	store *Store
	log   *log.Logger

	mu      sync.RWMutex
	clients map[*dashboardClient]struct{}
}

// NewDashboard returns a Dashboard backed by store for snapshot queries.
func NewDashboard(store *Store, logger *log.Logger) *Dashboard {
	return &Dashboard{
		store:   store,
		log:     logger,
		clients: make(map[*dashboardClient]struct{}),
	}
}

// Handler returns the http.Handler to mount at the dashboard's /ws path.
func (d *Dashboard) Handler() http.Handler {
	return http.HandlerFunc(d.serveWS)
}

func (d *Dashboard) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := dashboardUpgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Printf("dashboard: upgrade error: %v", err)
		return
	}

	client := &dashboardClient{conn: conn, send: make(chan []byte, 16)}
	d.mu.Lock()
	d.clients[client] = struct{}{}
	d.mu.Unlock()

	go d.writePump(client)

	snap := d.store.Snapshot()
	if b, err := json.Marshal(snap); err == nil {
		select {
		case client.send <- b:
		default:
		}
	}

	go d.readPump(client)
}

// readPump discards anything the browser sends and exists only to detect
// disconnects, following the teacher's Client read-loop role.
func (d *Dashboard) readPump(c *dashboardClient) {
	defer d.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (d *Dashboard) writePump(c *dashboardClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (d *Dashboard) remove(c *dashboardClient) {
	d.mu.Lock()
	if _, ok := d.clients[c]; ok {
		delete(d.clients, c)
		close(c.send)
	}
	d.mu.Unlock()
}

// BroadcastEvent mirrors a notifier transition to every connected
// dashboard subscriber. Enqueue is non-blocking: a client whose send
// channel is full simply misses this frame, exactly like the teacher's
// broadcastJSON select/default pattern, so a slow browser tab can never
// stall the player.
func (d *Dashboard) BroadcastEvent(ev Event) {
	b, err := json.Marshal(map[string]interface{}{
		"type":    "list_state",
		"list_id": ev.ListID,
		"state":   ev.State.String(),
	})
	if err != nil {
		return
	}
	d.broadcast(b)
}

func (d *Dashboard) broadcast(b []byte) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := range d.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}
