package main

import (
	"log"

	"github.com/ocupoint/awgctl/pkg/mmio"
)

// SafetySequencer implements the Startup/Reset/Shutdown safety protocol:
// it drives an all-silence list through the player on bring-up, on RESET,
// and on tear-down, so the hardware is provably zero-gain at every
// lifecycle boundary. List-state IDLE notifications are only observed
// after the corresponding drain has actually completed, never before: the
// IDLE event here comes from the normal end-of-list transition observed by
// the player's tick loop while Player.DrainSynthetic waits on it, not from
// a separate notify call, so there is no way to see it early.
type SafetySequencer struct {
	store  *Store
	player *Player
	driver mmio.Driver
	log    *log.Logger
}

// NewSafetySequencer wires the sequencer to its collaborators.
func NewSafetySequencer(store *Store, player *Player, driver mmio.Driver, logger *log.Logger) *SafetySequencer {
	return &SafetySequencer{store: store, player: player, driver: driver, log: logger}
}

// Prime runs the startup sequence: L0 then L1, each drained to completion.
// Must be called before any TCP port is bound.
func (s *SafetySequencer) Prime() {
	s.log.Printf("safety: priming silence sequence on L0")
	s.player.DrainSynthetic(0)
	s.log.Printf("safety: priming silence sequence on L1")
	s.player.DrainSynthetic(1)
	s.log.Printf("safety: prime complete")
}

// Reset implements the RESET opcode: stop playback and clear both lists
// immediately (silently, no notification yet), then re-run the same prime
// sequence so the hardware is confirmed silent before any IDLE transition
// becomes observable.
func (s *SafetySequencer) Reset() {
	s.log.Printf("safety: reset requested")
	s.store.StopAndClearSilently()
	s.player.DrainSynthetic(0)
	s.player.DrainSynthetic(1)
	s.log.Printf("safety: reset complete")
}

// Shutdown implements process tear-down: stop playback, clear both lists,
// run the prime sequence once more, then stop the player and release the
// MMIO driver. Callers must have already stopped accepting new TCP clients
// and drained any in-flight preloading client before calling this.
func (s *SafetySequencer) Shutdown() {
	s.log.Printf("safety: shutdown sequence")
	s.store.StopAndClearSilently()
	s.player.DrainSynthetic(0)
	s.player.DrainSynthetic(1)
	s.player.Stop()
	if err := s.driver.ZeroAll(); err != nil {
		s.log.Printf("safety: zero_all error during shutdown: %v", err)
	}
	if err := s.driver.Close(); err != nil {
		s.log.Printf("safety: mmio close error during shutdown: %v", err)
	}
}
