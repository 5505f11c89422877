package config

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/galliconnect/rideshare/internal/db"
)

// OpenDB opens and pings the configured database.
func OpenDB(ctx context.Context, cfg Env) (*sql.DB, db.Dialect, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, "", err
	}

	sqlDB, err := sql.Open(string(dialect), cfg.DBDSN)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}

	switch dialect {
	case db.SQLite:
		// one writer at a time; extra connections only produce SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	default:
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.DBConnLifetime)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DBPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, "", fmt.Errorf("ping db: %w", err)
	}

	slog.Info("database connected", "driver", string(dialect))
	return sqlDB, dialect, nil
}
