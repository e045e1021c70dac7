package idp

import (
	"context"
	"sync"
)

// RecordingNavigator remembers navigation targets instead of following them.
type RecordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

// Navigate records target.
func (n *RecordingNavigator) Navigate(_ context.Context, target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
	return nil
}

// Last returns the most recent target.
func (n *RecordingNavigator) Last() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.targets) == 0 {
		return "", false
	}
	return n.targets[len(n.targets)-1], true
}

// Targets returns every recorded target in order.
func (n *RecordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}
