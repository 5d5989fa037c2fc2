package mmio

import (
	"fmt"
	"sync"

	"github.com/ocupoint/awgctl/pkg/codec"
)

// SimDriver is a software loopback MMIO backend: instead of strobing real
// registers it records every word it was asked to send, so tests (and the
// CLI's -mmio-device=sim mode) can assert on actual dispatched output
// without privileged access to FPGA registers.
type SimDriver struct {
	mu          sync.Mutex
	initialized bool
	closed      bool
	sent        [][]uint32
	failNext    error
}

// NewSimDriver returns a ready-to-Init SimDriver.
func NewSimDriver() *SimDriver {
	return &SimDriver{}
}

func (d *SimDriver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return fmt.Errorf("mmio: sim driver already initialized")
	}
	d.initialized = true
	return nil
}

func (d *SimDriver) SendWords(words []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized || d.closed {
		return fmt.Errorf("mmio: sim driver not ready")
	}
	if d.failNext != nil {
		err := d.failNext
		d.failNext = nil
		return err
	}
	cp := make([]uint32, len(words))
	copy(cp, words)
	d.sent = append(d.sent, cp)
	return nil
}

func (d *SimDriver) ZeroAll() error {
	return d.SendWords(codec.SilenceFrame())
}

func (d *SimDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// FailNextSend arranges for the next SendWords call to return err instead
// of recording the frame, for exercising the player's MMIO-error path.
func (d *SimDriver) FailNextSend(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = err
}

// Sent returns a copy of every frame recorded so far, in dispatch order.
func (d *SimDriver) Sent() [][]uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]uint32, len(d.sent))
	copy(out, d.sent)
	return out
}

// LastSent returns the most recently dispatched frame, or nil if none.
func (d *SimDriver) LastSent() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return nil
	}
	return d.sent[len(d.sent)-1]
}
