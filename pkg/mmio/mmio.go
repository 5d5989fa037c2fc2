// Package mmio is the hardware collaborator boundary: it maps the AXI-GPIO
// data and write-enable-strobe registers and drives one word at a time into
// the FPGA fabric.
package mmio

// Driver is the MMIO collaborator contract. Implementations are
// single-writer: only the player calls SendWords during normal operation.
type Driver interface {
	// Init opens and maps the data and WEN regions and sets the idle WEN
	// level. It must be called exactly once before any other method.
	Init() error

	// SendWords writes each word to the data register and pulses WEN to
	// its active level and back to idle, in order, with no reordering and
	// no splitting of the slice across calls to the underlying hardware.
	SendWords(words []uint32) error

	// ZeroAll sends the silence frame once.
	ZeroAll() error

	// Close unmaps and releases resources. It is safe to call at most once.
	Close() error
}
