//go:build !windows

package main

// Outside Windows the process supervisor is expected to enforce a single instance.
func acquireInstanceLock(string) bool {
	return true
}

func releaseInstanceLock() {}
