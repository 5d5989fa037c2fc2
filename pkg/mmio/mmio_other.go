//go:build !linux

package mmio

import "fmt"

// LinuxDriver is unavailable outside Linux: the AXI-GPIO register window it
// maps has no equivalent character device on other platforms.
type LinuxDriver struct{}

// NewLinuxDriver returns a driver whose Init always fails on non-Linux
// hosts; use the sim backend (-mmio-device=sim) instead.
func NewLinuxDriver(devicePath string) *LinuxDriver {
	return &LinuxDriver{}
}

func (d *LinuxDriver) Init() error {
	return fmt.Errorf("mmio: real AXI-GPIO backend not supported on this platform")
}

func (d *LinuxDriver) SendWords(words []uint32) error {
	return fmt.Errorf("mmio: real AXI-GPIO backend not supported on this platform")
}

func (d *LinuxDriver) ZeroAll() error {
	return fmt.Errorf("mmio: real AXI-GPIO backend not supported on this platform")
}

func (d *LinuxDriver) Close() error {
	return nil
}
