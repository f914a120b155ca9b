//go:build deadlock

// Package sync provides the lock types used throughout rfidbridge in place
// of the standard library's. Building with -tags deadlock swaps them for go-deadlock.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex reports lock waits longer than the detection timeout.
type Mutex = deadlock.Mutex

// RWMutex reports lock waits longer than the detection timeout.
type RWMutex = deadlock.RWMutex

// Once is the standard sync.Once.
type Once = sync.Once

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Dispatch holds no lock across a delivery, so any wait near the
// delivery timeout is suspect.
const detectionTimeout = 10 * time.Second

// DetectionEnabled reports whether locks are checked for deadlocks.
func DetectionEnabled() bool { return !deadlock.Opts.Disable }

func init() {
	deadlock.Opts.DeadlockTimeout = detectionTimeout

	if os.Getenv("RFIDBRIDGE_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true
	println("[DEADLOCK DETECTION ENABLED] rfidbridge locks are checked by go-deadlock")
}
