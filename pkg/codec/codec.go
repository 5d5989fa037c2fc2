// Package codec packs and unpacks the 32-bit command words consumed by the
// AWG's AXI-GPIO data bus and defines the all-silence safety frame.
package codec

import "fmt"

// Command opcodes occupying bits 31:28 of a word.
const (
	CmdIndex  = 0x1
	CmdGain   = 0x2
	CmdCommit = 0xF
)

// MaxWordsPerFrame bounds the length of any single dispatched frame.
const MaxWordsPerFrame = 64

// NumChannels and NumTones describe the hardware's fixed topology: two
// channels, eight tones per channel.
const (
	NumChannels = 2
	NumTones    = 8
)

// payloadMask retains only the low 20 bits of a payload field.
const payloadMask = 0xFFFFF

// PackIndex builds an INDEX command word. idx is masked to its low 20 bits;
// ch and tone are assumed already range-checked by the caller (0/1 and 0..7
// respectively) since this layer is pure and total.
func PackIndex(ch uint8, tone uint8, idx uint32) uint32 {
	return pack(CmdIndex, ch, tone, idx)
}

// PackGain builds a GAIN command word carrying a Q1.17 fixed-point gain in
// its low 20 bits.
func PackGain(ch uint8, tone uint8, gain20 uint32) uint32 {
	return pack(CmdGain, ch, tone, gain20)
}

// PackCommit builds the COMMIT word. It carries no channel, tone, or
// payload bits.
func PackCommit() uint32 {
	return CmdCommit << 28
}

func pack(cmd uint8, ch uint8, tone uint8, payload uint32) uint32 {
	return uint32(cmd&0xF)<<28 |
		uint32(ch&0x1)<<27 |
		uint32(tone&0x7)<<24 |
		(payload & payloadMask)
}

// Unpacked is the decomposed form of a command word.
type Unpacked struct {
	Cmd     uint8
	Channel uint8
	Tone    uint8
	Payload uint32
}

// Unpack decomposes a word into its fields. It never fails: every 32-bit
// value has a well-defined decomposition, even if the resulting Cmd does not
// match one of the three known opcodes.
func Unpack(word uint32) Unpacked {
	return Unpacked{
		Cmd:     uint8(word >> 28 & 0xF),
		Channel: uint8(word >> 27 & 0x1),
		Tone:    uint8(word >> 24 & 0x7),
		Payload: word & payloadMask,
	}
}

// ValidateFrameLen reports whether count is a legal word count for a single
// dispatched frame: 1..MaxWordsPerFrame inclusive.
func ValidateFrameLen(count int) error {
	if count < 1 || count > MaxWordsPerFrame {
		return fmt.Errorf("codec: frame word count %d out of range [1,%d]", count, MaxWordsPerFrame)
	}
	return nil
}

// SilenceFrame returns the fixed 17-word safety sequence: a GAIN=0 word for
// every (channel, tone) pair in canonical order, followed by one COMMIT.
func SilenceFrame() []uint32 {
	frame := make([]uint32, 0, NumChannels*NumTones+1)
	for ch := uint8(0); ch < NumChannels; ch++ {
		for tone := uint8(0); tone < NumTones; tone++ {
			frame = append(frame, PackGain(ch, tone, 0))
		}
	}
	frame = append(frame, PackCommit())
	return frame
}
