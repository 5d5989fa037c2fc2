//go:build !poweroff

package main

// powerOffHook is nil by default: SHUTDOWN ('X') performs RESET and closes
// the client connection only. Build with -tags poweroff to opt into an
// actual host power-off.
var powerOffHook func()
