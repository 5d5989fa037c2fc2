package main

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ocupoint/awgctl/pkg/mmio"
)

// Player is the Periodic Player: a single goroutine that wakes on absolute
// monotonic deadlines spaced by the store's period and dispatches one
// frame from the current list per tick.
//
// Scheduling follows the absolute-deadline discipline used by the original
// player thread's clock_gettime/clock_nanosleep(TIMER_ABSTIME) loop: the
// next deadline is always computed by adding one period to the prior
// deadline, never to "now", so a transient stall compresses the next
// interval instead of bursting missed ticks to catch up.
//
// Run's loop is the ONLY consumer of store.tick(): DrainSynthetic (used by
// the safety sequencer on startup, RESET, and shutdown) never ticks on its
// own schedule. Two independently-scheduled loops pulling frames from the
// same list would race for whichever one happens to observe the list's
// end-of-play transition, so instead DrainSynthetic arms a per-list
// completion channel and blocks on it; Run's own dispatch signals that
// channel when it sees the list it cares about go IDLE. This requires Run
// to already be executing before DrainSynthetic is ever called.
type Player struct {
	store     *Store
	mmio      mmio.Driver
	notifier  *Notifier
	journal   *Journal
	dashboard *Dashboard
	log       *log.Logger

	stop chan struct{}
	done chan struct{}

	running int32

	// dispatchMu serializes every call into store.tick()+MMIO.SendWords.
	// With Run as the sole ticker this only ever guards against Run's own
	// loop, but it is kept so dispatchOnce remains safe to call from
	// anywhere without relying on there being exactly one caller.
	dispatchMu sync.Mutex

	drainMu   sync.Mutex
	drainWait [2]chan struct{}
}

// NewPlayer wires a Player to its store, MMIO driver, and notifier. journal
// and dashboard may both be nil.
func NewPlayer(store *Store, driver mmio.Driver, notifier *Notifier, journal *Journal, dashboard *Dashboard, logger *log.Logger) *Player {
	return &Player{
		store:     store,
		mmio:      driver,
		notifier:  notifier,
		journal:   journal,
		dashboard: dashboard,
		log:       logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run executes the absolute-deadline tick loop until Stop is called. It is
// intended to be run in its own goroutine; Stop waits for it to exit.
func (p *Player) Run() {
	atomic.StoreInt32(&p.running, 1)
	defer func() {
		atomic.StoreInt32(&p.running, 0)
		close(p.done)
	}()

	deadline := time.Now()
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		period := time.Duration(p.store.PeriodUs()) * time.Microsecond
		deadline = deadline.Add(period)
		// Ticks missed during a stall are dropped, not replayed: move the
		// deadline forward on the same period grid to the latest point not
		// after now.
		if behind := time.Since(deadline); period > 0 && behind >= period {
			deadline = deadline.Add(behind / period * period)
		}
		if sleep := time.Until(deadline); sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-timer.C:
			case <-p.stop:
				timer.Stop()
				return
			}
		}

		p.dispatchOnce()
	}
}

// dispatchOnce runs exactly one tick: advance the store, emit any
// resulting notifications, and send at most one frame to MMIO. The store
// lock is released (inside store.tick) before the MMIO call so preloading
// can proceed concurrently with the frame currently in flight; dispatchMu
// serializes whole dispatches against any other caller of dispatchOnce.
func (p *Player) dispatchOnce() {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	events, listID, frameIdx, frame := p.store.tick()
	p.emit(events)

	if frame == nil {
		return
	}
	if err := p.mmio.SendWords(frame); err != nil {
		// MMIO I/O error: log and continue. The player never retries a
		// failed frame since the waveform is time-indexed; re-emission
		// would stutter rather than correct anything.
		p.log.Printf("mmio send_words error: %v", err)
	}
	if p.journal != nil {
		p.journal.Record(listID, frameIdx, frame)
	}
}

func (p *Player) emit(events []Event) {
	for _, ev := range events {
		p.notifier.SetStatus(ev.ListID, ev.State)
		if p.dashboard != nil {
			p.dashboard.BroadcastEvent(ev)
		}
		if ev.State == StateIdle {
			p.signalDrain(ev.ListID)
		}
	}
}

// signalDrain wakes any DrainSynthetic call currently waiting on listID
// reaching IDLE. A no-op if nothing is waiting on that list, which is the
// common case: most IDLE transitions come from ordinary end-of-play, not a
// safety drain.
func (p *Player) signalDrain(listID int) {
	p.drainMu.Lock()
	ch := p.drainWait[listID]
	p.drainWait[listID] = nil
	p.drainMu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// Stop signals the run loop to exit and waits for it to do so.
func (p *Player) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	if atomic.LoadInt32(&p.running) != 0 {
		<-p.done
	}
}

// DrainSynthetic primes list id with the all-silence sequence and blocks
// until that list has fully played out and returned to IDLE. It never ticks
// on its own: Run's loop is the only thing that ever calls store.tick(), so
// DrainSynthetic instead arms a completion channel for id and waits for
// Run's own dispatch to signal it once it observes that list go IDLE. Run
// must already be executing (its goroutine started) before this is called,
// including for the initial startup prime.
func (p *Player) DrainSynthetic(id int) {
	done := make(chan struct{})
	p.drainMu.Lock()
	p.drainWait[id] = done
	p.drainMu.Unlock()

	p.store.PrimeSilent(id)
	p.store.StartSynthetic(id)

	<-done
}
