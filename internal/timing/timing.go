// Package timing abstracts timer scheduling so deferral and coalescing
// logic can be driven by a fake clock in tests.
package timing

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback had not yet
	// fired.
	Stop() bool
}

// Clock schedules deferred callbacks.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }
