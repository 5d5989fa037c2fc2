package main

import (
	"fmt"
	"sync"

	"github.com/ocupoint/awgctl/pkg/codec"
	"github.com/ocupoint/awgctl/pkg/wordbuf"
)

// ListState is the three-state lifecycle of a playlist slot.
type ListState int

const (
	StateIdle ListState = iota
	StateLoading
	StateReady
)

func (s ListState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// MinTotalFrames and MaxTotalFrames bound a BEGIN's declared frame count.
const (
	MinTotalFrames = 1
	MaxTotalFrames = 2_000_000
)

const primeFrameCount = 100

// List is one of the two fixed-identity playlist slots.
type List struct {
	ID           int
	State        ListState
	TotalFrames  uint32
	LoadedFrames uint32
	Buf          *wordbuf.Buffer
}

func newList(id int) *List {
	return &List{ID: id, State: StateIdle, Buf: wordbuf.New(0)}
}

// Event is a single list state transition, the unit the Notification
// Channel emits on.
type Event struct {
	ListID int
	State  ListState
}

// Stats are the store's operational counters. The STATS opcode reply
// carries FramesPushed, Switches and Holds; Resets is not included in it.
type Stats struct {
	FramesPushed uint64
	Switches     uint64
	Holds        uint64
	Resets       uint64
}

// Store is the Playlist Store: both lists, player position, and the
// period, all protected by a single store-wide mutex. Every exported method
// acquires and releases this mutex internally; callers never see it, which
// is what guarantees the store-mutex-never-held-while-notifying discipline
// required of every caller.
type Store struct {
	mu sync.Mutex

	lists [2]*List

	playing  bool
	cur      int
	next     int
	curFrame uint32
	periodUs uint32

	stats Stats
}

// NewStore returns a Store with both lists IDLE and the given tick period.
func NewStore(periodUs uint32) *Store {
	return &Store{
		lists:    [2]*List{newList(0), newList(1)},
		cur:      0,
		next:     1,
		periodUs: periodUs,
	}
}

func validateListID(id int) error {
	if id != 0 && id != 1 {
		return fmt.Errorf("playlist: list id %d out of range {0,1}", id)
	}
	return nil
}

// Begin starts loading list id for total frames, freeing any prior
// contents first. BEGIN on an already-LOADING or READY list behaves as
// clear-then-begin: its net effect on state is identical to that sequence,
// collapsed into a single LOADING transition event.
//
// BEGIN on the list the player currently holds as cur while playing is
// rejected: the player may be holding a frame slice aliasing that list's
// buffer outside the store lock in between a tick() call and its MMIO
// dispatch, and freeing/regrowing the buffer out from under it would
// violate the no-PUSH/no-BEGIN-into-the-playing-list invariant spec.md §9
// requires. Preload only ever targets a list that is IDLE or LOADING; it
// never overlaps with play.
func (s *Store) Begin(id int, total uint32) ([]Event, error) {
	if err := validateListID(id); err != nil {
		return nil, err
	}
	if total < MinTotalFrames || total > MaxTotalFrames {
		return nil, fmt.Errorf("playlist: total_frames %d out of range [%d,%d]", total, MinTotalFrames, MaxTotalFrames)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing && s.cur == id {
		return nil, fmt.Errorf("playlist: list %d is currently playing, cannot BEGIN", id)
	}

	l := s.lists[id]
	l.Buf.Reset()
	l.TotalFrames = total
	l.LoadedFrames = 0
	l.State = StateLoading

	return []Event{{id, StateLoading}}, nil
}

// Push appends one frame to list id. When the frame completes the
// declared total, the list is promoted to READY and, if the player is
// idle, the auto-start rule fires.
//
// Like Begin, Push refuses to target the list the player currently holds
// as cur while playing. In practice the State != StateLoading check below
// already catches this (a playing list's state is READY, never LOADING),
// but the cur/playing check is asserted explicitly so the invariant does
// not depend on that coincidence alone.
func (s *Store) Push(id int, words []uint32) ([]Event, error) {
	if err := validateListID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing && s.cur == id {
		return nil, fmt.Errorf("playlist: list %d is currently playing, cannot PUSH", id)
	}

	l := s.lists[id]
	if l.State != StateLoading {
		return nil, fmt.Errorf("playlist: list %d is not LOADING", id)
	}
	if l.LoadedFrames >= l.TotalFrames {
		return nil, fmt.Errorf("playlist: list %d is already full", id)
	}
	if err := l.Buf.Append(words); err != nil {
		return nil, err
	}
	l.LoadedFrames++
	s.stats.FramesPushed++

	var events []Event
	if l.LoadedFrames == l.TotalFrames {
		l.State = StateReady
		events = append(events, Event{id, StateReady})
		s.maybeAutoStartLocked(id)
	}
	return events, nil
}

// End finalizes a partially loaded list to READY. It rejects an empty
// list.
func (s *Store) End(id int) ([]Event, error) {
	if err := validateListID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.lists[id]
	if l.State != StateLoading {
		return nil, fmt.Errorf("playlist: list %d is not LOADING", id)
	}
	if l.LoadedFrames < 1 {
		return nil, fmt.Errorf("playlist: list %d has no frames to end", id)
	}
	l.State = StateReady
	s.maybeAutoStartLocked(id)
	return []Event{{id, StateReady}}, nil
}

// maybeAutoStartLocked applies the auto-start rule: if the player is not
// currently playing, the freshly-READY list becomes cur. Must be called
// with s.mu held.
func (s *Store) maybeAutoStartLocked(readyID int) {
	if s.playing {
		return
	}
	s.playing = true
	s.cur = readyID
	s.next = 1 - readyID
	s.curFrame = 0
}

// ReserveHint pre-sizes list id's frame metadata capacity per the
// INIT_LIST opcode's max_frames_hint. It is advisory only: Begin still
// authoritatively allocates against the real total_frames it later
// receives, so an undersized or absent hint never corrupts bookkeeping.
func (s *Store) ReserveHint(id int, maxFramesHint uint32) error {
	if err := validateListID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[id].Buf.Reserve(int(maxFramesHint))
	return nil
}

// CancelLoading cancels a list that is LOADING, freeing its buffers and
// reverting it to IDLE. Used when a preloading client disconnects
// mid-load. No-op (and no event) if the list was not LOADING.
func (s *Store) CancelLoading(id int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[id]
	if l.State != StateLoading {
		return nil
	}
	s.clearLocked(l)
	return []Event{{id, StateIdle}}
}

func (s *Store) clearLocked(l *List) {
	l.Buf.Reset()
	l.TotalFrames = 0
	l.LoadedFrames = 0
	l.State = StateIdle
}

// StopAndClearSilently halts playback and clears both lists without
// emitting any notification. It is the first phase of RESET: the spec
// requires IDLE to be observed only after the safety drain completes, so
// this bookkeeping-only clear is intentionally silent. The caller (the
// safety sequencer) is responsible for priming and draining synthetic
// silence lists afterward, whose normal end-of-play transition is what
// actually notifies IDLE.
func (s *Store) StopAndClearSilently() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.clearLocked(s.lists[0])
	s.clearLocked(s.lists[1])
	s.stats.Resets++
}

// PrimeSilent loads the 100-copy silence sequence into list id as a
// synthetic READY list, bypassing the normal BEGIN/PUSH/END notification
// path (the state diagram treats synthetic priming as producing no
// observable LOADING transition). It does not start playback; the caller
// sets cur/playing via StartSynthetic.
func (s *Store) PrimeSilent(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[id]
	l.Buf.Reset()
	frame := codec.SilenceFrame()
	for i := 0; i < primeFrameCount; i++ {
		_ = l.Buf.Append(frame) // 17 words, always within MaxWordsPerFrame
	}
	l.TotalFrames = primeFrameCount
	l.LoadedFrames = primeFrameCount
	l.State = StateReady
}

// StartSynthetic begins playback of a primed synthetic list in isolation:
// the other list is left IDLE so no seam-free switch occurs and the
// sequencer observes exactly one list draining to completion.
func (s *Store) StartSynthetic(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.cur = id
	s.next = 1 - id
	s.curFrame = 0
}

// PeriodUs returns the current tick period.
func (s *Store) PeriodUs() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.periodUs
}

// SetPeriodUs updates the tick period, read by the player once per tick.
func (s *Store) SetPeriodUs(periodUs uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodUs = periodUs
}

// Snapshot is the QUERY opcode's reply payload.
type Snapshot struct {
	Playing     bool
	CurList     int
	CurFrame    uint32
	FreeFrames0 uint32
	FreeFrames1 uint32
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	free := func(l *List) uint32 {
		if l.State != StateLoading {
			return 0
		}
		return l.TotalFrames - l.LoadedFrames
	}
	return Snapshot{
		Playing:     s.playing,
		CurList:     s.cur,
		CurFrame:    s.curFrame,
		FreeFrames0: free(s.lists[0]),
		FreeFrames1: free(s.lists[1]),
	}
}

// StatsSnapshot is the STATS opcode's reply payload.
func (s *Store) StatsSnapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ListStates returns the current observable state of both lists, used to
// seed a freshly attached notifier subscriber.
func (s *Store) ListStates() [2]ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return [2]ListState{s.lists[0].State, s.lists[1].State}
}

// tick runs one iteration of the player's per-tick dispatch logic and
// returns any list-state events produced plus, if a frame was
// picked up, the word slice to dispatch. The returned slice aliases the
// list's backing storage and is only safe to read until the next call into
// the store for the same list while it remains current; the player must
// send it to MMIO before releasing this guarantee by calling tick again.
func (s *Store) tick() (events []Event, listID int, frameIdx uint32, frame []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return nil, 0, 0, nil
	}

	cur := s.lists[s.cur]
	if s.curFrame >= cur.LoadedFrames {
		next := s.lists[s.next]
		if next.State == StateReady && next.LoadedFrames > 0 {
			finishedID := cur.ID
			s.clearLocked(cur)
			events = append(events, Event{finishedID, StateIdle})
			s.cur, s.next = s.next, s.cur
			s.curFrame = 0
			s.stats.Switches++
			cur = s.lists[s.cur]
		} else {
			finishedID := cur.ID
			s.playing = false
			s.clearLocked(cur)
			events = append(events, Event{finishedID, StateIdle})
			s.stats.Holds++
			return events, 0, 0, nil
		}
	}

	frameIdx = s.curFrame
	frame = cur.Buf.Frame(int(s.curFrame))
	s.curFrame++
	return events, cur.ID, frameIdx, frame
}
