package main

import (
	"fmt"
	"log"
	"net"
	"sync"
)

// unknownState marks a notifier subscriber's per-list cache entry as not
// yet sent, forcing the next SetStatus call for that list to emit
// regardless of the actual state value.
const unknownState = -1

// Notifier is the Notification Channel: a single-subscriber TCP server
// that emits one line per list-state transition, edge-triggered against a
// per-subscriber cache. It owns its own mutex, independent of the Store's,
// following the same lock-separation discipline used elsewhere in the
// teacher codebase for splitting a connection lock from a state lock:
// callers must never hold the store lock while calling into this type.
type Notifier struct {
	mu       sync.Mutex
	conn     net.Conn
	lastSent [2]int

	store *Store
	log   *log.Logger
}

// NewNotifier returns a Notifier with no subscriber attached.
func NewNotifier(store *Store, logger *log.Logger) *Notifier {
	return &Notifier{
		lastSent: [2]int{unknownState, unknownState},
		store:    store,
		log:      logger,
	}
}

// Serve accepts subscribers on ln until it is closed. Each new connection
// replaces (and closes) any prior subscriber, per the single-subscriber
// rule; it then immediately receives the current status of both lists.
func (n *Notifier) Serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		n.attach(conn)
	}
}

func (n *Notifier) attach(conn net.Conn) {
	n.mu.Lock()
	if n.conn != nil {
		n.conn.Close()
	}
	n.conn = conn
	n.lastSent = [2]int{unknownState, unknownState}
	n.mu.Unlock()

	for id, state := range n.store.ListStates() {
		n.SetStatus(id, state)
	}
}

// SetStatus emits LIST<id>:<STATE>\n to the current subscriber iff state
// differs from the last value sent for that list. A write error closes and
// drops the subscriber; subsequent calls accumulate silently in the cache
// until a new subscriber attaches.
func (n *Notifier) SetStatus(id int, state ListState) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lastSent[id] == int(state) {
		return
	}
	n.lastSent[id] = int(state)

	if n.conn == nil {
		return
	}
	line := fmt.Sprintf("LIST%d:%s\n", id, state)
	if _, err := n.conn.Write([]byte(line)); err != nil {
		n.log.Printf("notifier: write error, dropping subscriber: %v", err)
		n.conn.Close()
		n.conn = nil
	}
}

// Close shuts down the current subscriber connection, if any. It does not
// close the listener; callers are responsible for that.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
}
