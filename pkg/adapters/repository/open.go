// Package repository picks the record store implementation from a database URL.
package repository

import (
	"context"
	"strings"

	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

// Open returns a PostgreSQL store for postgres:// URLs and a SQLite/Turso store otherwise.
func Open(ctx context.Context, dbURL string) (ports.Repository, error) {
	if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
		return postgres.NewPostgresRepository(ctx, dbURL)
	}
	return sqlite.NewSQLiteRepository(dbURL)
}
