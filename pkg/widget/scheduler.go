package widget

import "time"

// Timer is a cancellable scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. It lets tests replace wall-clock timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ImmediateScheduler runs work synchronously, ignoring the delay.
// Useful for non-interactive hosts such as HTTP handlers and tests.
type ImmediateScheduler struct{}

func (ImmediateScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	f()
	return stopped{}
}

type stopped struct{}

func (stopped) Stop() bool { return false }
