// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(ctx, opts)       – connect, size the pool, and ping.
//	WithPassword(dsn, pw) – splice a secret into a password-less DSN.
//	Migrate(ctx, db, src) – apply every Migrator's statements in order.
//
// Callers should Close() the returned *sqlx.DB when no longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Options mirrors the database section of the config.
type Options struct {
	DSN      string
	Password string // optional; overrides any password in DSN
	MaxOpen  int
	MaxIdle  int
}

// Open returns a pinged *sqlx.DB.  Zero pool sizes fall back to 15 open and
// 5 idle, with a 30-minute connection lifetime.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	dsn, err := WithPassword(opts.DSN, opts.Password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(orDefault(opts.MaxOpen, 15))
	db.SetMaxIdleConns(orDefault(opts.MaxIdle, 5))
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// WithPassword parses dsn, sets the password when pw is non-empty, and
// forces parseTime so DATETIME columns scan into time.Time.
func WithPassword(dsn, pw string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if pw != "" {
		cfg.Passwd = pw
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
