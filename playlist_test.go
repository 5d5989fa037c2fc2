package main

import "testing"

func frame3() []uint32 { return []uint32{1, 2, 3} }

func TestBeginPushEndLifecycle(t *testing.T) {
	s := NewStore(1000)

	events, err := s.Begin(0, 2)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(events) != 1 || events[0] != (Event{0, StateLoading}) {
		t.Fatalf("Begin events = %v, want one LOADING event", events)
	}

	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push 1/2: %v", err)
	}
	events, err = s.Push(0, frame3())
	if err != nil {
		t.Fatalf("Push 2/2: %v", err)
	}
	if len(events) != 1 || events[0] != (Event{0, StateReady}) {
		t.Fatalf("Push completion events = %v, want one READY event", events)
	}

	states := s.ListStates()
	if states[0] != StateReady {
		t.Fatalf("list 0 state = %v, want READY", states[0])
	}
}

func TestBeginValidatesListIDAndTotal(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(2, 1); err == nil {
		t.Fatal("expected error for list id 2")
	}
	if _, err := s.Begin(0, 0); err == nil {
		t.Fatal("expected error for total_frames 0")
	}
	if _, err := s.Begin(0, MaxTotalFrames+1); err == nil {
		t.Fatal("expected error for total_frames over max")
	}
}

func TestEndPromotesPartialList(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 5); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	events, err := s.End(0)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if len(events) != 1 || events[0] != (Event{0, StateReady}) {
		t.Fatalf("End events = %v, want one READY event", events)
	}
}

func TestEndRejectsEmptyList(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 5); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.End(0); err == nil {
		t.Fatal("expected error ending an empty list")
	}
}

func TestPushRejectsWhenNotLoading(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Push(0, frame3()); err == nil {
		t.Fatal("expected error pushing to an IDLE list")
	}
}

func TestCancelLoadingRevertsToIdle(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 5); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	events := s.CancelLoading(0)
	if len(events) != 1 || events[0] != (Event{0, StateIdle}) {
		t.Fatalf("CancelLoading events = %v, want one IDLE event", events)
	}
	if states := s.ListStates(); states[0] != StateIdle {
		t.Fatalf("list 0 state after cancel = %v, want IDLE", states[0])
	}

	// Cancelling an already-IDLE list is a no-op.
	if events := s.CancelLoading(0); events != nil {
		t.Fatalf("CancelLoading on IDLE list = %v, want nil", events)
	}
}

func TestAutoStartOnReadyWhenNotPlaying(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 1); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	snap := s.Snapshot()
	if !snap.Playing || snap.CurList != 0 {
		t.Fatalf("Snapshot = %+v, want playing list 0", snap)
	}
}

func TestBeginRejectsCurrentlyPlayingList(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 1); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if snap := s.Snapshot(); !snap.Playing || snap.CurList != 0 {
		t.Fatalf("Snapshot = %+v, want playing list 0", snap)
	}

	// List 0 is now cur and playing: BEGIN on it must be rejected rather
	// than resetting the buffer the player may be holding a frame slice
	// into.
	if _, err := s.Begin(0, 5); err == nil {
		t.Fatal("expected error BEGIN-ing the currently playing list")
	}

	// The other list is next, not cur: BEGIN-ing it is unaffected.
	if _, err := s.Begin(1, 3); err != nil {
		t.Fatalf("Begin on non-playing list 1: %v", err)
	}
}

func TestPushRejectsCurrentlyPlayingList(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 1); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if snap := s.Snapshot(); !snap.Playing || snap.CurList != 0 {
		t.Fatalf("Snapshot = %+v, want playing list 0", snap)
	}

	// List 0 is READY and currently playing; a further PUSH must be
	// rejected explicitly rather than relying solely on the State !=
	// LOADING check to happen to catch it.
	if _, err := s.Push(0, frame3()); err == nil {
		t.Fatal("expected error pushing to the currently playing list")
	}
}

func TestTickDispatchesFramesInOrder(t *testing.T) {
	s := NewStore(1000)
	f1 := []uint32{10, 11}
	f2 := []uint32{20, 21, 22}
	if _, err := s.Begin(0, 2); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, f1); err != nil {
		t.Fatalf("Push f1: %v", err)
	}
	if _, err := s.Push(0, f2); err != nil {
		t.Fatalf("Push f2: %v", err)
	}

	_, listID, frameIdx, got := s.tick()
	if listID != 0 || frameIdx != 0 || len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("tick 1 = list %d frame %d %v, want list 0 frame 0 %v", listID, frameIdx, got, f1)
	}

	_, listID, frameIdx, got = s.tick()
	if listID != 0 || frameIdx != 1 || len(got) != 3 || got[0] != 20 {
		t.Fatalf("tick 2 = list %d frame %d %v, want list 0 frame 1 %v", listID, frameIdx, got, f2)
	}

	events, _, _, got := s.tick()
	if got != nil {
		t.Fatalf("tick 3 frame = %v, want nil (list exhausted, nothing queued next)", got)
	}
	if len(events) != 1 || events[0] != (Event{0, StateIdle}) {
		t.Fatalf("tick 3 events = %v, want one IDLE event", events)
	}
	if snap := s.Snapshot(); snap.Playing {
		t.Fatal("Snapshot.Playing = true after list exhausted with nothing queued")
	}
}

func TestSeamFreeSwitchBetweenLists(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 1); err != nil {
		t.Fatalf("Begin 0: %v", err)
	}
	if _, err := s.Push(0, []uint32{1}); err != nil {
		t.Fatalf("Push 0: %v", err)
	}
	if _, err := s.Begin(1, 1); err != nil {
		t.Fatalf("Begin 1: %v", err)
	}
	if _, err := s.Push(1, []uint32{2}); err != nil {
		t.Fatalf("Push 1: %v", err)
	}

	// First tick dispatches list 0's only frame.
	_, listID, _, frame := s.tick()
	if listID != 0 || frame[0] != 1 {
		t.Fatalf("tick 1 = list %d %v, want list 0 [1]", listID, frame)
	}

	// Second tick finds list 0 exhausted and list 1 ready: switches and
	// dispatches list 1's frame in the very same tick, with no dead tick.
	events, listID, frameIdx, frame := s.tick()
	if listID != 1 || frameIdx != 0 || frame == nil || frame[0] != 2 {
		t.Fatalf("tick 2 = list %d frame %d %v, want list 1 frame 0 [2]", listID, frameIdx, frame)
	}
	if len(events) != 1 || events[0] != (Event{0, StateIdle}) {
		t.Fatalf("tick 2 events = %v, want list 0 IDLE", events)
	}
}

func TestResetClearsBothLists(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 1); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	s.StopAndClearSilently()

	snap := s.Snapshot()
	if snap.Playing {
		t.Fatal("Snapshot.Playing = true after reset")
	}
	states := s.ListStates()
	if states[0] != StateIdle || states[1] != StateIdle {
		t.Fatalf("list states after reset = %v, want both IDLE", states)
	}

	// Idempotent: resetting an already-IDLE store is a no-op on state.
	s.StopAndClearSilently()
	states = s.ListStates()
	if states[0] != StateIdle || states[1] != StateIdle {
		t.Fatalf("list states after second reset = %v, want both IDLE", states)
	}
}

func TestBeginOnLoadingListBehavesAsClearThenBegin(t *testing.T) {
	s := NewStore(1000)
	if _, err := s.Begin(0, 10); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if _, err := s.Begin(0, 3); err != nil {
		t.Fatalf("second Begin: %v", err)
	}
	if states := s.ListStates(); states[0] != StateLoading {
		t.Fatalf("list 0 state = %v, want LOADING", states[0])
	}
	if _, err := s.Push(0, frame3()); err != nil {
		t.Fatalf("Push after re-begin: %v", err)
	}
	// The frame pushed before re-Begin must not have survived: only one
	// frame loaded so far against a fresh total of 3.
	if snap := s.Snapshot(); snap.FreeFrames0 != 2 {
		t.Fatalf("FreeFrames0 = %d, want 2", snap.FreeFrames0)
	}
}

func TestReserveHintDoesNotAffectBeginValidation(t *testing.T) {
	s := NewStore(1000)
	if err := s.ReserveHint(0, 500); err != nil {
		t.Fatalf("ReserveHint: %v", err)
	}
	if _, err := s.Begin(0, 10); err != nil {
		t.Fatalf("Begin after hint: %v", err)
	}
}
