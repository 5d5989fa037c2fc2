package main

import (
	"encoding/binary"
	"io"
	"log"
	"net"

	"github.com/ocupoint/awgctl/pkg/codec"
	"github.com/ocupoint/awgctl/pkg/mmio"
)

// DirectServer is the Direct port collaborator: each TCP message is framed
// as [u16 count_be][count x u32_be] and passed straight to MMIO with no
// buffering, no queueing, and no COMMIT injection. Unlike the queue port,
// multiple clients may be connected at once; each gets its own goroutine.
// Concurrent direct clients and the regular player both ultimately write
// through the same MMIO driver, so frames from this port interleave with
// player output at word granularity if both are active simultaneously --
// an accepted consequence of this port's "no buffering" contract.
type DirectServer struct {
	driver mmio.Driver
	log    *log.Logger
}

// NewDirectServer wires the direct port to the MMIO driver it writes
// through.
func NewDirectServer(driver mmio.Driver, logger *log.Logger) *DirectServer {
	return &DirectServer{driver: driver, log: logger}
}

// Serve accepts connections on ln until it is closed, handling each in its
// own goroutine.
func (d *DirectServer) Serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go d.serveClient(conn)
	}
}

func (d *DirectServer) serveClient(conn net.Conn) {
	defer conn.Close()
	for {
		var cb [2]byte
		if _, err := io.ReadFull(conn, cb[:]); err != nil {
			return
		}
		count := int(binary.BigEndian.Uint16(cb[:]))
		if err := codec.ValidateFrameLen(count); err != nil {
			return
		}
		buf := make([]byte, count*4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		words := make([]uint32, count)
		for i := range words {
			words[i] = binary.BigEndian.Uint32(buf[i*4:])
		}
		if err := d.driver.SendWords(words); err != nil {
			d.log.Printf("directserver: send_words error: %v", err)
		}
	}
}
