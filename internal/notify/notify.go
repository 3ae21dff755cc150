// Package notify raises a desktop notification when ccusage stops being
// reachable.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/janekbaraniewski/usagetray/internal/cache"
)

const (
	unavailableTitle = "ccusage not found"
	unavailableBody  = "Install the ccusage CLI to see usage: https://github.com/ryoppippi/ccusage"
)

// Sender delivers one notification.
type Sender func(title, body string) error

func BeeepSender(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Notifier fires once per transition from available to unavailable.
type Notifier struct {
	send Sender

	mu       sync.Mutex
	notified bool
}

func New(send Sender) *Notifier {
	if send == nil {
		send = BeeepSender
	}
	return &Notifier{send: send}
}

// Observe inspects a snapshot and notifies when the tool just became
// unavailable. It returns the send error, if any.
func (n *Notifier) Observe(snap cache.Snapshot) error {
	n.mu.Lock()
	if snap.Available {
		n.notified = false
		n.mu.Unlock()
		return nil
	}
	if n.notified {
		n.mu.Unlock()
		return nil
	}
	n.notified = true
	n.mu.Unlock()

	return n.send(unavailableTitle, unavailableBody)
}
