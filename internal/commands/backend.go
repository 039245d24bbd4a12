package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinoosan/voucherledger/internal/config"
	v1 "github.com/tinoosan/voucherledger/internal/httpapi/v1"
	"github.com/tinoosan/voucherledger/internal/sequence"
	"github.com/tinoosan/voucherledger/internal/storage/memory"
	"github.com/tinoosan/voucherledger/internal/storage/postgres"
)

// backend is a storage backend plus the means to issue codes outside an entity write.
type backend interface {
	v1.Store
	IssueCode(ctx context.Context, prefix string) (string, error)
}

// openBackend selects postgres when DATABASE_URL is set, the memory store
// otherwise. REDIS_URL moves the memory store's code counters into Redis.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.Currency)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.RedisURL != "" {
			logger.Warn("REDIS_URL ignored: postgres keeps code sequences in code_sequences")
		}
		logger.Info("storage backend: postgres")
		return pg, pg.Close, nil
	}

	var opts []memory.Option
	closeFn := func() {}
	if cfg.RedisURL != "" {
		client, err := sequence.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, memory.WithCounter(sequence.NewRedisCounter(client)))
		closeFn = func() { _ = client.Close() }
		logger.Info("code counters: redis")
	}
	logger.Info("storage backend: memory")
	return memory.New(cfg.Currency, opts...), closeFn, nil
}
