package coordinator

import (
	"context"
	"shardman/configs"
	"shardman/network"
	"shardman/storage"
	"sync"
)

// Context records the statement context for a coordinator node.
type Context struct {
	Manager *Manager
	cfg     *configs.Config
	conn    *Commu
	ctx     context.Context
	cancel  context.CancelFunc
	closed  sync.Once
}

// NewContext builds a coordinator serving broadcasts on cfg.ListenAddress.
// Requests in flight are interrupted when parent is cancelled or Close is called.
func NewContext(parent context.Context, cfg *configs.Config, dir storage.Directory, dialer network.Dialer, journal *storage.Journal) (*Context, error) {
	stmt := &Context{cfg: cfg}
	stmt.Manager = NewManager(cfg, dir, dialer, journal)
	stmt.ctx, stmt.cancel = context.WithCancel(parent)
	conn, err := NewConns(stmt, cfg.ListenAddress)
	if err != nil {
		stmt.cancel()
		return nil, err
	}
	stmt.conn = conn
	return stmt, nil
}

// Addr is the address the front end listens on.
func (c *Context) Addr() string {
	return c.conn.Addr().String()
}

// Main serves until the context is cancelled, then shuts the front end down.
func (c *Context) Main() {
	ch := make(chan bool)
	go func() {
		c.conn.Run()
		close(ch)
	}()
	configs.Logger.Infof("shardlord listening on %s", c.Addr())
	<-c.ctx.Done()
	c.Close()
	<-ch
}

func (c *Context) Close() {
	c.closed.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}
