package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ocupoint/awgctl/pkg/mmio"
)

func main() {
	mmioDevice := flag.String("mmio-device", "sim", "MMIO device path, or \"sim\" for the in-memory loopback backend")
	queueAddr := flag.String("queue-addr", ":9100", "preload/queue opcode server address")
	notifyAddr := flag.String("notify-addr", ":9101", "notification channel server address")
	directAddr := flag.String("direct-addr", "", "direct port server address (empty disables it)")
	dashboardAddr := flag.String("dashboard-addr", "", "operator WebSocket dashboard address (empty disables it)")
	journalFile := flag.String("journal-file", "", "parquet dispatch journal path (empty disables it)")
	periodUs := flag.Uint("period-us", 1000, "player tick period in microseconds")
	readTimeout := flag.Duration("read-timeout", DefaultReadTimeout, "queue client per-read timeout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "  awgctl binds the queue, notify, and (optionally) direct and dashboard ports")
		fmt.Fprintln(os.Stderr, "  after priming the hardware to silence.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "awgctl: ", log.LstdFlags|log.Lmicroseconds)

	driver := openDriver(*mmioDevice)
	if err := driver.Init(); err != nil {
		logger.Fatalf("mmio init failed: %v", err)
	}

	store := NewStore(uint32(*periodUs))
	notifier := NewNotifier(store, logger)

	var journal *Journal
	if *journalFile != "" {
		f, err := os.Create(*journalFile)
		if err != nil {
			logger.Fatalf("journal file create failed: %v", err)
		}
		journal = NewJournal(f, logger)
	}

	var dashboard *Dashboard
	var dashboardSrv *http.Server
	if *dashboardAddr != "" {
		dashboard = NewDashboard(store, logger)
		mux := http.NewServeMux()
		mux.Handle("/ws", dashboard.Handler())
		dashboardSrv = &http.Server{Addr: *dashboardAddr, Handler: mux}
		go func() {
			if err := dashboardSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("dashboard server error: %v", err)
			}
		}()
		logger.Printf("dashboard listening on %s", *dashboardAddr)
	}

	player := NewPlayer(store, driver, notifier, journal, dashboard, logger)
	go player.Run()

	safety := NewSafetySequencer(store, player, driver, logger)
	logger.Printf("priming silence sequence before accepting clients")
	safety.Prime()

	queueLn, err := net.Listen("tcp", *queueAddr)
	if err != nil {
		logger.Fatalf("queue listen on %s failed: %v", *queueAddr, err)
	}
	notifyLn, err := net.Listen("tcp", *notifyAddr)
	if err != nil {
		logger.Fatalf("notify listen on %s failed: %v", *notifyAddr, err)
	}

	queueServer := NewQueueServer(store, notifier, safety, logger)
	queueServer.readTimeout = *readTimeout
	go queueServer.Serve(queueLn)
	logger.Printf("queue server listening on %s", *queueAddr)

	go notifier.Serve(notifyLn)
	logger.Printf("notifier listening on %s", *notifyAddr)

	var directLn net.Listener
	if *directAddr != "" {
		directLn, err = net.Listen("tcp", *directAddr)
		if err != nil {
			logger.Fatalf("direct listen on %s failed: %v", *directAddr, err)
		}
		directServer := NewDirectServer(driver, logger)
		go directServer.Serve(directLn)
		logger.Printf("direct server listening on %s", *directAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Printf("shutdown signal received")

	queueLn.Close()
	notifyLn.Close()
	if directLn != nil {
		directLn.Close()
	}
	if dashboardSrv != nil {
		dashboardSrv.Close()
	}

	safety.Shutdown()

	if journal != nil {
		if err := journal.Close(); err != nil {
			logger.Printf("journal close error: %v", err)
		}
	}

	logger.Printf("shutdown complete")
	time.Sleep(10 * time.Millisecond)
}

// openDriver resolves the -mmio-device flag to a concrete Driver: the
// literal value "sim" selects the software loopback backend used for
// testing and hosts without mapped AXI-GPIO registers; any other value is
// treated as a device path for the real backend.
func openDriver(device string) mmio.Driver {
	if device == "sim" {
		return mmio.NewSimDriver()
	}
	return mmio.NewLinuxDriver(device)
}
