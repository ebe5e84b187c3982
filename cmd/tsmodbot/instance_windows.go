//go:build windows

package main

import (
	"errors"
	"strings"
	"syscall"
	"unsafe"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procCreateMutexW = kernel32.NewProc("CreateMutexW")
	procCloseHandle  = kernel32.NewProc("CloseHandle")

	mutexHandle uintptr
)

const errorAlreadyExists = 183

// acquireInstanceLock holds a named mutex per bot identity so two processes
// never answer the same server's chat.
func acquireInstanceLock(identity string) bool {
	name := "Global\\tsmodbot-" + strings.NewReplacer("\\", "_", ":", "_").Replace(identity)
	mutexName, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return true
	}

	handle, _, lastErr := procCreateMutexW.Call(0, 1, uintptr(unsafe.Pointer(mutexName)))
	if handle == 0 {
		return true
	}

	var errno syscall.Errno
	if errors.As(lastErr, &errno) && errno == errorAlreadyExists {
		_, _, _ = procCloseHandle.Call(handle)
		return false
	}

	mutexHandle = handle
	return true
}

func releaseInstanceLock() {
	if mutexHandle != 0 {
		_, _, _ = procCloseHandle.Call(mutexHandle)
		mutexHandle = 0
	}
}
