package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/notifiq-session/internal/config"
	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/store/filestore"
	"github.com/jrsteele09/notifiq-session/store/memstore"
	"github.com/jrsteele09/notifiq-session/store/sqlitestore"
	"github.com/rs/zerolog"
)

// openStore builds the Store selected by STORE_DRIVER. The returned func releases it.
func openStore(cfg config.StoreConfig, logger zerolog.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch driver := cfg.GetStoreDriver(); driver {
	case config.StoreDriverFile:
		return filestore.New(cfg.GetStorePath()), noop, nil
	case config.StoreDriverMemory:
		return memstore.New(), noop, nil
	case config.StoreDriverSQLite:
		path := cfg.GetStorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("[openStore] mkdir for %s: %w", path, err)
		}
		db, err := sqlitestore.Open(path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("[openStore] %w", err)
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("[openStore] migrate: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("[openStore] unknown store driver %q", driver)
	}
}
