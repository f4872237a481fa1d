//go:build linux

package core

import "golang.org/x/sys/unix"

func osThreadID() int {
	return unix.Gettid()
}
