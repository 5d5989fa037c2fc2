package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"
)

// Queue protocol opcodes.
const (
	opInitList  = 'I'
	opBegin     = 'B'
	opPush      = 'P'
	opEnd       = 'E'
	opReset     = 'Z'
	opShutdown  = 'X'
	opQuery     = 'Q'
	opStats     = 'S'
	opSetPeriod = 'T'
)

// DefaultReadTimeout is the per-read deadline a queue client is held to;
// a timeout drops the connection.
const DefaultReadTimeout = 5 * time.Second

// QueueServer is the Preload Protocol Handler: a single-active-client TCP
// opcode server on the queue/preload port. A new accept supersedes (force
// closes) whatever client is currently being served.
type QueueServer struct {
	store       *Store
	notifier    *Notifier
	safety      *SafetySequencer
	log         *log.Logger
	readTimeout time.Duration

	bytesRx uint64
}

// NewQueueServer wires the preload handler to its collaborators.
func NewQueueServer(store *Store, notifier *Notifier, safety *SafetySequencer, logger *log.Logger) *QueueServer {
	return &QueueServer{
		store:       store,
		notifier:    notifier,
		safety:      safety,
		log:         logger,
		readTimeout: DefaultReadTimeout,
	}
}

// Serve accepts connections on ln until it is closed. Each accepted
// connection supersedes any client currently being served: the prior
// connection is closed and the new one takes the single service slot.
func (q *QueueServer) Serve(ln net.Listener) {
	var activeConn net.Conn
	var activeDone chan struct{}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if activeConn != nil {
				activeConn.Close()
			}
			return
		}

		if activeConn != nil {
			activeConn.Close()
			<-activeDone
		}
		activeConn = conn
		done := make(chan struct{})
		activeDone = done
		go func() {
			defer close(done)
			q.serveClient(conn)
		}()
	}
}

func (q *QueueServer) serveClient(conn net.Conn) {
	q.log.Printf("queueserver: client connected from %s", conn.RemoteAddr())
	defer func() {
		q.log.Printf("queueserver: client disconnected from %s", conn.RemoteAddr())
		conn.Close()
	}()
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
		tc.SetReadBuffer(256 * 1024)
	}

	var loading [2]bool
	defer func() {
		for id, wasLoading := range loading {
			if wasLoading {
				q.emit(q.store.CancelLoading(id))
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(q.readTimeout))
		op, err := readByte(conn)
		if err != nil {
			return
		}

		switch op {
		case opInitList:
			id, hint, err := readInitListPayload(conn)
			if err != nil {
				return
			}
			if err := q.store.ReserveHint(id, hint); err != nil {
				return
			}

		case opBegin:
			id, total, err := readBeginPayload(conn)
			if err != nil {
				return
			}
			events, err := q.store.Begin(id, total)
			if err != nil {
				return
			}
			loading[id] = true
			q.emit(events)

		case opPush:
			id, words, n, err := readPushPayload(conn)
			if err != nil {
				return
			}
			atomic.AddUint64(&q.bytesRx, uint64(n))
			events, err := q.store.Push(id, words)
			if err != nil {
				return
			}
			for _, ev := range events {
				if ev.State == StateReady {
					loading[ev.ListID] = false
				}
			}
			q.emit(events)

		case opEnd:
			id, err := readListID(conn)
			if err != nil {
				return
			}
			events, err := q.store.End(id)
			if err != nil {
				return
			}
			loading[id] = false
			q.emit(events)

		case opReset:
			q.safety.Reset()

		case opShutdown:
			q.safety.Reset()
			if powerOffHook != nil {
				powerOffHook()
			}
			return

		case opQuery:
			if err := writeQueryReply(conn, q.store.Snapshot()); err != nil {
				return
			}

		case opStats:
			if err := writeStatsReply(conn, q.store.StatsSnapshot(), atomic.LoadUint64(&q.bytesRx)); err != nil {
				return
			}

		case opSetPeriod:
			periodUs, err := readUint32(conn)
			if err != nil {
				return
			}
			q.store.SetPeriodUs(periodUs)

		default:
			return
		}
	}
}

func (q *QueueServer) emit(events []Event) {
	for _, ev := range events {
		q.notifier.SetStatus(ev.ListID, ev.State)
	}
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readListID(r io.Reader) (int, error) {
	b, err := readByte(r)
	if err != nil {
		return 0, err
	}
	id := int(b)
	if err := validateListID(id); err != nil {
		return 0, err
	}
	return id, nil
}

func readInitListPayload(r io.Reader) (id int, maxFramesHint uint32, err error) {
	id, err = readListID(r)
	if err != nil {
		return 0, 0, err
	}
	hint, err := readUint32(r)
	if err != nil {
		return 0, 0, err
	}
	return id, hint, nil
}

func readBeginPayload(r io.Reader) (id int, total uint32, err error) {
	id, err = readListID(r)
	if err != nil {
		return 0, 0, err
	}
	total, err = readUint32(r)
	if err != nil {
		return 0, 0, err
	}
	return id, total, nil
}

func readPushPayload(r io.Reader) (id int, words []uint32, rawBytes int, err error) {
	id, err = readListID(r)
	if err != nil {
		return 0, nil, 0, err
	}
	var cb [2]byte
	if _, err = io.ReadFull(r, cb[:]); err != nil {
		return 0, nil, 0, err
	}
	count := int(binary.BigEndian.Uint16(cb[:]))
	if count < 1 || count > 64 {
		return 0, nil, 0, fmt.Errorf("queueserver: push count %d out of range", count)
	}
	buf := make([]byte, count*4)
	if _, err = io.ReadFull(r, buf); err != nil {
		return 0, nil, 0, err
	}
	words = make([]uint32, count)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return id, words, 3 + len(buf), nil
}

func writeQueryReply(w io.Writer, snap Snapshot) error {
	var buf [16]byte
	if snap.Playing {
		buf[0] = 1
	}
	buf[1] = byte(snap.CurList)
	binary.BigEndian.PutUint32(buf[2:6], snap.CurFrame)
	binary.BigEndian.PutUint32(buf[6:10], snap.FreeFrames0)
	binary.BigEndian.PutUint32(buf[10:14], snap.FreeFrames1)
	_, err := w.Write(buf[:])
	return err
}

func writeStatsReply(w io.Writer, stats Stats, bytesRx uint64) error {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[0:8], bytesRx)
	binary.BigEndian.PutUint64(buf[8:16], stats.FramesPushed)
	binary.BigEndian.PutUint64(buf[16:24], stats.Switches)
	binary.BigEndian.PutUint64(buf[24:32], stats.Holds)
	_, err := w.Write(buf[:])
	return err
}
