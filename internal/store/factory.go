package store

import (
	"context"
	"strings"
)

// NewStore picks a backend: postgres when DATABASE_URL is set, sqlite when
// SQLITE_PATH is set, otherwise an in-process store.
func NewStore(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	if strings.TrimSpace(sqlitePath) != "" {
		return NewSQLiteStore(ctx, sqlitePath)
	}
	return NewInMemoryStore(), nil
}
