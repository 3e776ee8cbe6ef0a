package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/locustgrub/locustgrub/server/internal/config"
	"github.com/locustgrub/locustgrub/server/internal/store"
	"github.com/locustgrub/locustgrub/server/internal/store/filelog"
	"github.com/locustgrub/locustgrub/server/internal/store/postgres"
)

// NewStore selects the record-store backend from cfg.DBDriver. Both backends
// satisfy the same store.Store contract; the choice is made once at startup.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return postgres.NewWithDB(db), nil
	case "file":
		return filelog.Open(cfg.DataFile, log)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
