// Command directclient is a minimal reference client for the direct port:
// it sends one [u16 count_be][count x u32_be] frame per line of hex words
// read from stdin, with no buffering and no COMMIT injection.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
)

func main() {
	addr := flag.String("addr", "localhost:9000", "direct port address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		words := make([]uint32, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseUint(strings.TrimPrefix(f, "0x"), 16, 32)
			if err != nil {
				log.Fatalf("bad hex word %q: %v", f, err)
			}
			words = append(words, uint32(v))
		}
		if err := sendFrame(conn, words); err != nil {
			log.Fatal("send:", err)
		}
		fmt.Printf("sent %d words\n", len(words))
	}
}

func sendFrame(conn net.Conn, words []uint32) error {
	buf := make([]byte, 2+4*len(words))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(words)))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[2+i*4:], w)
	}
	_, err := conn.Write(buf)
	return err
}
