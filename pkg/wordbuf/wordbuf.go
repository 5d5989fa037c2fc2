// Package wordbuf implements a flat, append-only, growable uint32 buffer
// with per-frame offset/count descriptors, the storage backing one playlist
// slot.
package wordbuf

import "fmt"

// GrowStep is the chunk size (in words) the buffer grows by when capacity
// runs out, mirroring the growth-by-fixed-chunk policy used for the ring
// buffer this module is grounded on.
const GrowStep = 4096

// Buffer holds the words for every frame in a list, plus the offset/count
// descriptor for each frame appended so far.
type Buffer struct {
	words   []uint32
	used    int
	Offsets []uint32
	Counts  []uint16
}

// New returns an empty Buffer with metadata storage pre-sized for
// maxFrames frames. maxFrames is only a hint: Append grows Offsets/Counts
// as needed regardless.
func New(maxFrames int) *Buffer {
	if maxFrames < 0 {
		maxFrames = 0
	}
	return &Buffer{
		Offsets: make([]uint32, 0, maxFrames),
		Counts:  make([]uint16, 0, maxFrames),
	}
}

// Reset discards all words and frame descriptors. The word storage is
// released, not retained, since a cleared list must not hold memory past
// its IDLE transition; the Offsets/Counts capacity (including any Reserve
// hint) is kept.
func (b *Buffer) Reset() {
	b.words = nil
	b.used = 0
	b.Offsets = b.Offsets[:0]
	b.Counts = b.Counts[:0]
}

// Append adds one frame's words, growing backing storage in GrowStep chunks
// as needed, and records its offset/count descriptor. It returns an error
// if the frame word count is out of range.
func (b *Buffer) Append(frame []uint32) error {
	if len(frame) < 1 || len(frame) > 64 {
		return fmt.Errorf("wordbuf: frame word count %d out of range [1,64]", len(frame))
	}
	b.ensureCap(len(frame))
	offset := b.used
	copy(b.words[offset:], frame)
	b.used += len(frame)
	b.Offsets = append(b.Offsets, uint32(offset))
	b.Counts = append(b.Counts, uint16(len(frame)))
	return nil
}

// ensureCap grows the backing slice by GrowStep multiples until there is
// room for need more words, without ever shrinking or reallocating the
// already-used prefix out from under a reader.
func (b *Buffer) ensureCap(need int) {
	if b.used+need <= len(b.words) {
		return
	}
	missing := b.used + need - len(b.words)
	chunks := (missing + GrowStep - 1) / GrowStep
	grown := make([]uint32, len(b.words)+chunks*GrowStep)
	copy(grown, b.words[:b.used])
	b.words = grown
}

// Reserve grows the Offsets/Counts metadata capacity to at least
// maxFrames, without touching any already-appended content. It backs the
// queue protocol's INIT_LIST capacity hint.
func (b *Buffer) Reserve(maxFrames int) {
	if maxFrames <= cap(b.Offsets) {
		return
	}
	offsets := make([]uint32, len(b.Offsets), maxFrames)
	copy(offsets, b.Offsets)
	b.Offsets = offsets

	counts := make([]uint16, len(b.Counts), maxFrames)
	copy(counts, b.Counts)
	b.Counts = counts
}

// Frame returns the word slice for frame i. The returned slice aliases the
// buffer's backing array and must not be retained past the next Reset.
func (b *Buffer) Frame(i int) []uint32 {
	off := b.Offsets[i]
	n := b.Counts[i]
	return b.words[off : off+uint32(n)]
}

// Len reports how many frames have been appended.
func (b *Buffer) Len() int {
	return len(b.Offsets)
}
