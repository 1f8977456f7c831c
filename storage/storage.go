package storage

import (
	"context"
	"shardman/configs"

	"github.com/pkg/errors"
)

// Directory maps node ids to connection strings.
type Directory interface {
	// ConnString returns the node's connection string, or its privileged variant when super is set.
	// A node without one yields an error wrapping utils.ErrLookup.
	ConnString(ctx context.Context, node int, super bool) (string, error)
	Close() error
}

// OpenDirectory opens the directory selected by cfg.Directory.
// It returns (nil, nil) when no directory is configured; only node 0 can be resolved then.
func OpenDirectory(ctx context.Context, cfg *configs.Config) (Directory, error) {
	switch cfg.Directory.Driver {
	case configs.PostgreSQL:
		db, err := NewPostgresDirectory(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	case configs.SQLite:
		db, err := OpenSQLiteDirectory(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	case configs.NoDir, "":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown directory driver %q", cfg.Directory.Driver)
	}
}

func connStringColumn(super bool) string {
	if super {
		return "super_connection_string"
	}
	return "connection_string"
}
