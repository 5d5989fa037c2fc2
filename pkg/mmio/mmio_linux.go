//go:build linux

package mmio

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ocupoint/awgctl/pkg/codec"
)

// regionSize is the mapped window size for each AXI-GPIO region (one 4KB
// page covers the data and WEN registers of this core with room to spare).
const regionSize = 4096

// dataOffset and wenOffset are the register byte offsets within the mapped
// window, matching the core's documented AXI-GPIO layout.
const (
	dataOffset = 0x00
	wenOffset  = 0x08
)

// wenActive and wenIdle are the strobe levels; the core latches a word on
// the idle->active->idle transition.
const (
	wenIdle   = 0
	wenActive = 1
)

// LinuxDriver maps a UIO/`/dev/mem`-style character device exposing the
// AXI-GPIO data and WEN registers and drives words into it directly.
type LinuxDriver struct {
	devicePath string
	fd         int
	region     []byte
}

// NewLinuxDriver returns a Driver bound to the given UIO/mem character
// device. Init must be called before use.
func NewLinuxDriver(devicePath string) *LinuxDriver {
	return &LinuxDriver{devicePath: devicePath, fd: -1}
}

func (d *LinuxDriver) Init() error {
	if d.fd != -1 {
		return fmt.Errorf("mmio: driver already initialized")
	}
	fd, err := unix.Open(d.devicePath, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return fmt.Errorf("mmio: open %s: %w", d.devicePath, err)
	}
	region, err := unix.Mmap(fd, 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("mmio: mmap %s: %w", d.devicePath, err)
	}
	d.fd = fd
	d.region = region
	binary.NativeEndian.PutUint32(d.region[wenOffset:], wenIdle)
	return nil
}

// SendWords writes each word to the data register then pulses WEN, in
// order, with a memory barrier-equivalent ordering enforced by issuing the
// writes as separate volatile-style stores to the mapped region.
func (d *LinuxDriver) SendWords(words []uint32) error {
	if d.region == nil {
		return fmt.Errorf("mmio: driver not initialized")
	}
	for _, w := range words {
		binary.NativeEndian.PutUint32(d.region[dataOffset:], w)
		binary.NativeEndian.PutUint32(d.region[wenOffset:], wenActive)
		binary.NativeEndian.PutUint32(d.region[wenOffset:], wenIdle)
	}
	return nil
}

func (d *LinuxDriver) ZeroAll() error {
	return d.SendWords(codec.SilenceFrame())
}

func (d *LinuxDriver) Close() error {
	if d.region != nil {
		if err := unix.Munmap(d.region); err != nil {
			return fmt.Errorf("mmio: munmap: %w", err)
		}
		d.region = nil
	}
	if d.fd != -1 {
		err := unix.Close(d.fd)
		d.fd = -1
		if err != nil {
			return fmt.Errorf("mmio: close: %w", err)
		}
	}
	return nil
}
