package wordbuf

import "testing"

func TestAppendAndFrame(t *testing.T) {
	b := New(2)
	if err := b.Append([]uint32{1, 2, 3}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := b.Append([]uint32{4, 5}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}

	f0 := b.Frame(0)
	if len(f0) != 3 || f0[0] != 1 || f0[1] != 2 || f0[2] != 3 {
		t.Fatalf("Frame(0) = %v, want [1 2 3]", f0)
	}
	f1 := b.Frame(1)
	if len(f1) != 2 || f1[0] != 4 || f1[1] != 5 {
		t.Fatalf("Frame(1) = %v, want [4 5]", f1)
	}
}

func TestAppendRejectsOutOfRangeCount(t *testing.T) {
	b := New(1)
	if err := b.Append(nil); err == nil {
		t.Fatal("expected error for zero-length frame")
	}
	huge := make([]uint32, 65)
	if err := b.Append(huge); err == nil {
		t.Fatal("expected error for 65-word frame")
	}
}

func TestGrowthAcrossChunks(t *testing.T) {
	b := New(0)
	frame := make([]uint32, 64)
	for i := range frame {
		frame[i] = uint32(i)
	}
	// GrowStep is 4096 words; push enough 64-word frames to force more than
	// one grow step and confirm earlier frames remain intact.
	n := GrowStep/64*2 + 3
	for i := 0; i < n; i++ {
		if err := b.Append(frame); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}
	if b.Len() != n {
		t.Fatalf("Len() = %d, want %d", b.Len(), n)
	}
	first := b.Frame(0)
	last := b.Frame(n - 1)
	for i := range frame {
		if first[i] != frame[i] || last[i] != frame[i] {
			t.Fatalf("frame contents corrupted after growth at index %d", i)
		}
	}
}

func TestReset(t *testing.T) {
	b := New(1)
	_ = b.Append([]uint32{1})
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	if err := b.Append([]uint32{9, 9}); err != nil {
		t.Fatalf("Append after Reset: %v", err)
	}
	if f := b.Frame(0); len(f) != 2 || f[0] != 9 {
		t.Fatalf("Frame(0) after reset = %v, want [9 9]", f)
	}
}
