// Package account implements the account lifecycle flow: loading the
// account summary, cancelling subscriptions, and confirmation-gated account
// deletion with optional data export. Side effects (notifications,
// navigation, timers, file downloads, the identity signal) are injected as
// capabilities so every path is testable without a real UI or provider.
package account

import (
	"time"

	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// Notifier receives the user-facing outcome of each operation
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Navigator performs the post-deletion redirect
type Navigator interface {
	RedirectTo(path string)
}

// Scheduler runs fn once after the given delay. Test implementations may
// run it synchronously.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// ExportSink persists the serialized data export under the given filename
type ExportSink interface {
	Save(filename string, data []byte) error
}

// IdentitySignal is the ambient "current user" provided by the identity
// layer. Ready reports whether the signal has resolved; User is nil when no
// one is signed in.
type IdentitySignal interface {
	Ready() bool
	User() *models.Profile
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
