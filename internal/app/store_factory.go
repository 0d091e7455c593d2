package app

import (
	"fmt"
	"strings"

	"github.com/shrimpsizemoose/klassbok/internal/store"
	"github.com/shrimpsizemoose/klassbok/internal/store/jsonfile"
	"github.com/shrimpsizemoose/klassbok/internal/store/postgres"
	"github.com/shrimpsizemoose/klassbok/internal/store/sqlite"
)

func DetectDBType(dsn string) store.DatabaseType {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return store.DBTypePostgres
	case strings.HasPrefix(dsn, "json:"):
		return store.DBTypeJSON
	default:
		return store.DBTypeSQLite
	}
}

func NewStore(dsn, migrationsDir string) (store.JournalStore, error) {
	switch DetectDBType(dsn) {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dsn, migrationsDir)
	case store.DBTypeJSON:
		return jsonfile.Open(strings.TrimPrefix(dsn, "json:"))
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(dsn, migrationsDir)
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", dsn)
	}
}
