package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/threat-verdict/internal/adapters/store"
	"github.com/mikey/threat-verdict/internal/config"
	"go.uber.org/zap"
)

// StoreFactory creates the verdict store
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore opens the verdict store, or returns nil when it is disabled
func (f *StoreFactory) CreateStore() (*store.SQLStore, error) {
	sc := f.cfg.GetStore()
	if !sc.Enabled {
		return nil, nil
	}

	if sc.Driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(sc.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := store.NewSQLStore(ctx, sc.Driver, sc.DSN, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Verdict store ready", zap.String("driver", sc.Driver))
	return s, nil
}
