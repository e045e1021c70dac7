package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgellow/login-front/internal/log"
)

// CleanupManager handles periodic cleanup of expired login attempts
type CleanupManager struct {
	store    AttemptStore
	interval time.Duration
	stopOnce sync.Once
	started  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// cleanupTimeout bounds one sweep so a slow backend cannot stall shutdown
const cleanupTimeout = 30 * time.Second

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(store AttemptStore, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the cleanup loop in a goroutine
func (cm *CleanupManager) Start(ctx context.Context) {
	log.LogInfoWithFields("cleanup", "Starting login attempt cleanup manager", map[string]any{
		"interval": cm.interval.String(),
	})

	cm.started.Store(true)
	go cm.run(ctx)
}

// Stop stops the cleanup loop and waits for a running sweep. It is safe to
// call more than once, or without Start.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
		if cm.started.Load() {
			<-cm.doneChan
		}
		log.LogInfo("Login attempt cleanup manager stopped")
	})
}

func (cm *CleanupManager) run(ctx context.Context) {
	defer close(cm.doneChan)

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.cleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.cleanup(ctx)
		case <-cm.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (cm *CleanupManager) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	count, err := cm.store.CleanupExpired(ctx)
	if err != nil {
		log.LogErrorWithFields("cleanup", "Failed to cleanup expired attempts", map[string]any{
			"error": err.Error(),
		})
		return
	}

	if count > 0 {
		log.LogInfoWithFields("cleanup", "Cleaned up expired login attempts", map[string]any{
			"count": count,
		})
	}
}
