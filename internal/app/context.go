package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/wholikeme/internal/cache"
	"github.com/oggyb/wholikeme/internal/config"
	"github.com/oggyb/wholikeme/internal/push"
)

// AppContext holds shared dependencies (DB, Redis, Logger, push transport, config)
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Push       push.Sender
	Config     *config.Config
}

// New creates a new AppContext. A nil sender disables push delivery.
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, sender push.Sender, cfg *config.Config) *AppContext {
	if sender == nil {
		sender = push.NoopSender{}
	}
	if cfg == nil {
		cfg = config.New()
	}
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Push:       sender,
		Config:     cfg,
	}
}
