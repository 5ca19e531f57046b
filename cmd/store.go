package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regex-validate/internal/config"
	"github.com/sells-group/regex-validate/internal/store"
)

// initStore opens the configured store and applies its migrations.
func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Driver {
	case "sqlite":
		dsn := c.DatabaseURL
		if dsn == "" {
			dsn = "composition_regexes.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.DatabaseURL, &store.PoolConfig{MaxConns: c.MaxConns, MinConns: c.MinConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
