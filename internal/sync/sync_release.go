//go:build !deadlock

// Package sync provides the lock types used throughout rfidbridge in place
// of the standard library's. Building with -tags deadlock swaps them for go-deadlock.
package sync

import "sync"

// Mutex is the standard sync.Mutex.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex.
type RWMutex = sync.RWMutex

// Once is the standard sync.Once.
type Once = sync.Once

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// DetectionEnabled reports whether locks are checked for deadlocks.
func DetectionEnabled() bool { return false }
