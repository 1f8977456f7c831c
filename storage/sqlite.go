package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"shardman/utils"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY,
	connection_string TEXT,
	super_connection_string TEXT
)`

// LiteDB is a node directory kept in an embedded SQLite file, for clusters
// whose metadata does not live in a PostgreSQL coordinator.
type LiteDB struct {
	db *sql.DB
}

func OpenSQLiteDirectory(ctx context.Context, path string) (*LiteDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create nodes table")
	}
	return &LiteDB{db: db}, nil
}

// AddNode inserts or replaces a node. An empty superConnStr is stored as NULL.
func (c *LiteDB) AddNode(ctx context.Context, node int, connStr string, superConnStr string) error {
	var super interface{}
	if superConnStr != "" {
		super = superConnStr
	}
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO nodes (id, connection_string, super_connection_string) VALUES (?, ?, ?)",
		node, connStr, super)
	return err
}

func (c *LiteDB) ConnString(ctx context.Context, node int, super bool) (string, error) {
	var connStr sql.NullString
	query := fmt.Sprintf("SELECT %s FROM nodes WHERE id = ?", connStringColumn(super))
	err := c.db.QueryRowContext(ctx, query, node).Scan(&connStr)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !connStr.Valid) {
		return "", errors.Wrapf(utils.ErrLookup, "node %d", node)
	}
	if err != nil {
		return "", fmt.Errorf("%w for node %d: %w", utils.ErrLookup, node, err)
	}
	return connStr.String, nil
}

func (c *LiteDB) Close() error {
	return c.db.Close()
}
