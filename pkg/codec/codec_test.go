package codec

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []struct {
		ch, tone uint8
		payload  uint32
	}{
		{0, 0, 0},
		{1, 7, 0x1FFFF},
		{0, 3, 899},
		{1, 0, 0xFFFFF},
	}

	for _, c := range cases {
		idxWord := PackIndex(c.ch, c.tone, c.payload)
		u := Unpack(idxWord)
		if u.Cmd != CmdIndex || u.Channel != c.ch || u.Tone != c.tone || u.Payload != c.payload&0xFFFFF {
			t.Fatalf("PackIndex/Unpack round trip mismatch: got %+v for input %+v", u, c)
		}

		gainWord := PackGain(c.ch, c.tone, c.payload)
		u = Unpack(gainWord)
		if u.Cmd != CmdGain || u.Channel != c.ch || u.Tone != c.tone || u.Payload != c.payload&0xFFFFF {
			t.Fatalf("PackGain/Unpack round trip mismatch: got %+v for input %+v", u, c)
		}
	}
}

func TestPackCommit(t *testing.T) {
	if got := PackCommit(); got != 0xF0000000 {
		t.Fatalf("PackCommit() = 0x%08X, want 0xF0000000", got)
	}
}

func TestSilenceFrame(t *testing.T) {
	frame := SilenceFrame()
	if len(frame) != 17 {
		t.Fatalf("len(SilenceFrame()) = %d, want 17", len(frame))
	}
	for i, w := range frame[:16] {
		u := Unpack(w)
		if u.Cmd != CmdGain || u.Payload != 0 {
			t.Fatalf("silence word %d = %+v, want a zero-gain word", i, u)
		}
		wantCh := uint8(i / NumTones)
		wantTone := uint8(i % NumTones)
		if u.Channel != wantCh || u.Tone != wantTone {
			t.Fatalf("silence word %d channel/tone = %d/%d, want %d/%d", i, u.Channel, u.Tone, wantCh, wantTone)
		}
	}
	if frame[16] != PackCommit() {
		t.Fatalf("last silence word = 0x%08X, want COMMIT", frame[16])
	}
}

func TestValidateFrameLen(t *testing.T) {
	if err := ValidateFrameLen(0); err == nil {
		t.Fatal("expected error for count=0")
	}
	if err := ValidateFrameLen(65); err == nil {
		t.Fatal("expected error for count=65")
	}
	if err := ValidateFrameLen(1); err != nil {
		t.Fatalf("unexpected error for count=1: %v", err)
	}
	if err := ValidateFrameLen(MaxWordsPerFrame); err != nil {
		t.Fatalf("unexpected error for count=64: %v", err)
	}
}
