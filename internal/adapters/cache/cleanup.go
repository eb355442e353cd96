package cache

import (
	"context"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// startCleanupTask periodically removes expired entries until stopCh is closed
func startCleanupTask(repo core.CacheRepository, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := repo.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
