package coordinator

import (
	"context"
	"fmt"
	"shardman/configs"
	"shardman/network"
	"shardman/utils"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// fakeNode scripts the behaviour of one participant.
type fakeNode struct {
	delay      time.Duration
	connectErr error
	sendErr    error
	// execErr fails COMMIT/ROLLBACK PREPARED.
	execErr error
	// dropped makes Receive fail as if the server closed the connection.
	dropped bool
	reply   *network.Reply

	mu     sync.Mutex
	sent   []string
	execs  []string
	closes int
}

func (n *fakeNode) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func (n *fakeNode) Execs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.execs...)
}

func (n *fakeNode) Closes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closes
}

// fakeCluster is both the node directory and the dialer of a test.
type fakeCluster struct {
	nodes map[int]*fakeNode

	mu      sync.Mutex
	lookups []int
	dials   []string
	events  []string
}

func newCluster() *fakeCluster {
	return &fakeCluster{nodes: make(map[int]*fakeNode)}
}

func (c *fakeCluster) node(id int, n *fakeNode) *fakeNode {
	c.nodes[id] = n
	return n
}

func (c *fakeCluster) event(format string, a ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, fmt.Sprintf(format, a...))
}

func (c *fakeCluster) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *fakeCluster) Dials() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.dials...)
}

func (c *fakeCluster) Lookups() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.lookups...)
}

func (c *fakeCluster) ConnString(ctx context.Context, node int, super bool) (string, error) {
	c.mu.Lock()
	c.lookups = append(c.lookups, node)
	c.mu.Unlock()
	if _, ok := c.nodes[node]; !ok || node == configs.CoordinatorNode {
		return "", errors.Wrapf(utils.ErrLookup, "node %d", node)
	}
	if super {
		return fmt.Sprintf("user=postgres node=%d", node), nil
	}
	return fmt.Sprintf("node=%d", node), nil
}

func (c *fakeCluster) Close() error {
	return nil
}

func (c *fakeCluster) Connect(ctx context.Context, connString string) (network.Conn, error) {
	c.mu.Lock()
	c.dials = append(c.dials, connString)
	c.mu.Unlock()
	idx := strings.LastIndex(connString, "node=")
	if idx < 0 {
		return nil, errors.Errorf("bad connection string %q", connString)
	}
	id, err := strconv.Atoi(connString[idx+len("node="):])
	if err != nil {
		return nil, err
	}
	n, ok := c.nodes[id]
	if !ok {
		return nil, errors.Errorf("no such host for node %d", id)
	}
	if n.connectErr != nil {
		return nil, n.connectErr
	}
	return &fakeConn{id: id, node: n, cluster: c}, nil
}

type fakeConn struct {
	id      int
	node    *fakeNode
	cluster *fakeCluster
	pending bool
}

func (c *fakeConn) Send(ctx context.Context, sql string) error {
	c.node.mu.Lock()
	c.node.sent = append(c.node.sent, sql)
	c.node.mu.Unlock()
	c.cluster.event("send %d", c.id)
	if c.node.sendErr != nil {
		return c.node.sendErr
	}
	c.pending = true
	return nil
}

func (c *fakeConn) Receive(ctx context.Context) (*network.Reply, error) {
	if !c.pending {
		return nil, errors.New("no command in progress")
	}
	c.pending = false
	select {
	case <-time.After(c.node.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.cluster.event("reply %d", c.id)
	if c.node.dropped {
		return nil, errors.New("server closed the connection unexpectedly")
	}
	if c.node.reply == nil {
		return &network.Reply{}, nil
	}
	r := *c.node.reply
	return &r, nil
}

func (c *fakeConn) Exec(ctx context.Context, sql string) error {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	c.node.execs = append(c.node.execs, sql)
	return c.node.execErr
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.node.mu.Lock()
	defer c.node.mu.Unlock()
	c.node.closes++
	return nil
}

func scalar(v string) *network.Reply {
	return &network.Reply{Tuples: true, Rows: [][][]byte{{[]byte(v)}}}
}

func rowCount(n int64) *network.Reply {
	return &network.Reply{RowsAffected: n}
}

func failed(msg string) *network.Reply {
	return &network.Reply{Err: errors.New(msg)}
}

func testConfig() *configs.Config {
	cfg := configs.Default()
	cfg.Shardlord = true
	cfg.CoordinatorConnString = "node=0"
	cfg.Directory.Driver = configs.NoDir
	cfg.FinalizeTimeoutMs = 2000
	return cfg
}

func testManager(cfg *configs.Config, c *fakeCluster) *Manager {
	return NewManager(cfg, c, c, nil)
}
