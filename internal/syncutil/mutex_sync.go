//go:build !deadlock

// Package syncutil provides the mutex types used throughout the LIN stack,
// with optional deadlock detection. The default build uses the standard
// library types with zero overhead; build with -tags=deadlock to swap in
// github.com/sasha-s/go-deadlock, which is useful when debugging lockups
// between the scheduling goroutine and application callers.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.Mutex to expose its interface
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.RWMutex to expose its interface
type RWMutex struct {
	sync.RWMutex
}
