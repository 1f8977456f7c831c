package storage

import (
	"context"
	"fmt"
	"shardman/utils"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
)

// SQLDB reads the node table of the coordinator's own database.
type SQLDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(ctx context.Context, dsn string) (*SQLDB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid directory dsn")
	}
	config.MaxConns = 4
	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to directory database")
	}
	return &SQLDB{pool: pool}, nil
}

func (c *SQLDB) ConnString(ctx context.Context, node int, super bool) (string, error) {
	var connStr *string
	sql := fmt.Sprintf("select %s from shardman.nodes where id = $1", connStringColumn(super))
	err := c.pool.QueryRow(ctx, sql, node).Scan(&connStr)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && connStr == nil) {
		return "", errors.Wrapf(utils.ErrLookup, "node %d", node)
	}
	if err != nil {
		return "", fmt.Errorf("%w for node %d: %w", utils.ErrLookup, node, err)
	}
	return *connStr, nil
}

func (c *SQLDB) Close() error {
	c.pool.Close()
	return nil
}
