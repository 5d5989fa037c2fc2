//go:build poweroff && linux

package main

import "os/exec"

func init() {
	powerOffHook = func() {
		exec.Command("/sbin/poweroff").Run()
	}
}
