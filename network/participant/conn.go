package participant

import (
	"context"
	"shardman/configs"
	"shardman/network"
	"time"

	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
)

// Dialer opens libpq-style connections to participant nodes.
type Dialer struct {
	ConnectTimeout time.Duration
	// DialFunc replaces the network dial when set.
	DialFunc pgconn.DialFunc
}

func NewDialer(cfg *configs.Config) *Dialer {
	return &Dialer{ConnectTimeout: cfg.ConnectTimeout()}
}

func (d *Dialer) Connect(ctx context.Context, connString string) (network.Conn, error) {
	config, err := pgconn.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "invalid connection string")
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = d.ConnectTimeout
	}
	if d.DialFunc != nil {
		config.DialFunc = d.DialFunc
	}
	pg, err := pgconn.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	configs.TPrintf("connected to %s:%d/%s", config.Host, config.Port, config.Database)
	return &Conn{pg: pg}, nil
}

// Conn sends one command at a time over a PostgreSQL simple-protocol connection.
type Conn struct {
	pg      *pgconn.PgConn
	pending *pgconn.MultiResultReader
}

func (c *Conn) Send(ctx context.Context, sql string) error {
	if c.pending != nil {
		return errors.New("another command is already in progress")
	}
	// Exec writes the query right away, results are read lazily by Receive.
	c.pending = c.pg.Exec(ctx, sql)
	if c.pg.IsClosed() {
		err := c.pending.Close()
		c.pending = nil
		if err == nil {
			err = errors.New("connection closed")
		}
		return err
	}
	return nil
}

func (c *Conn) Receive(ctx context.Context) (*network.Reply, error) {
	if c.pending == nil {
		return nil, errors.New("no command in progress")
	}
	mrr := c.pending
	c.pending = nil
	var last *network.Reply
	for mrr.NextResult() {
		last = readResult(mrr.ResultReader())
	}
	if err := mrr.Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return &network.Reply{Err: pgErr}, nil
		}
		return nil, err
	}
	if last == nil {
		// the node answered with EmptyQueryResponse.
		return &network.Reply{Err: errors.New("empty query")}, nil
	}
	return last, nil
}

func readResult(rr *pgconn.ResultReader) *network.Reply {
	res := &network.Reply{Tuples: rr.FieldDescriptions() != nil}
	for rr.NextRow() {
		values := rr.Values()
		row := make([][]byte, len(values))
		for i, v := range values {
			if v != nil {
				// values point into the read buffer.
				row[i] = append([]byte{}, v...)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	tag, err := rr.Close()
	res.RowsAffected = tag.RowsAffected()
	res.Err = err
	return res
}

func (c *Conn) Exec(ctx context.Context, sql string) error {
	if c.pending != nil {
		_ = c.pending.Close()
		c.pending = nil
	}
	_, err := c.pg.Exec(ctx, sql).ReadAll()
	return err
}

func (c *Conn) Close(ctx context.Context) error {
	return c.pg.Close(ctx)
}
