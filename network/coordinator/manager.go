package coordinator

import (
	"context"
	"fmt"
	"shardman/configs"
	"shardman/network"
	"shardman/storage"
	"shardman/utils"
	"strings"
	"sync"
	"time"

	set "github.com/deckarep/golang-set"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options are the per-call flags of a broadcast.
type Options struct {
	// IgnoreErrors embeds per-node failures in the response instead of failing the call.
	IgnoreErrors bool
	// TwoPhase wraps every command into a prepared transaction and commits or rolls back all of them.
	TwoPhase bool
	// SyncCommit keeps the nodes' default commit durability. When false the
	// session's synchronous_commit is relaxed to local.
	SyncCommit bool
	// Sequential waits for each node's reply before sending to the next node.
	Sequential bool
	// SuperConnString resolves nodes through their privileged connection string.
	SuperConnString bool
}

func OptionsOf(req *network.BroadcastRequest) Options {
	return Options{
		IgnoreErrors:    req.IgnoreErrors,
		TwoPhase:        req.TwoPhase,
		SyncCommit:      req.SyncCommit,
		Sequential:      req.Sequential,
		SuperConnString: req.SuperConnString,
	}
}

// Manager serves broadcasts for the coordinator.
type Manager struct {
	cfg      *configs.Config
	resolver *Resolver
	dialer   network.Dialer
	journal  *storage.Journal
	stat     *utils.Stat
	log      *logrus.Entry
	gidWarn  sync.Once
	syncWarn sync.Once
}

// NewManager builds a Manager. dir and journal may be nil.
func NewManager(cfg *configs.Config, dir storage.Directory, dialer network.Dialer, journal *storage.Journal) *Manager {
	return &Manager{
		cfg:      cfg,
		resolver: NewResolver(cfg, dir),
		dialer:   dialer,
		journal:  journal,
		stat:     utils.NewStat(),
		log:      configs.Logger.WithField("component", "broadcast"),
	}
}

func (c *Manager) Stat() *utils.Stat {
	return c.stat
}

// Broadcast sends each node its own command and aggregates the outcomes in request order.
//
// With opt.IgnoreErrors the call only fails when it is interrupted or the
// request cannot be parsed; failed nodes show up as <error>ID:REASON</error>.
// Otherwise the first failure aborts the call and is returned alone.
func (c *Manager) Broadcast(ctx context.Context, commands string, opt Options) (string, error) {
	id := configs.NextBroadcastID()
	log := c.log.WithField("broadcast", id)
	log.Debugf("Broadcast command '%s'", commands)
	cmds, err := ParseCommands(commands)
	if err != nil {
		c.record(id, commands, opt, "", "", "", err)
		return "", err
	}
	if c.cfg.SyncReplication && !opt.SyncCommit {
		c.syncWarn.Do(func() {
			log.Warn("synchronous replication is on but broadcasts without sync commit do not wait for standbys")
		})
	}
	info := utils.NewInfo(id, len(cmds))
	info.TwoPhase = opt.TwoPhase
	start := time.Now()

	gid := c.twoPhaseGID(cmds, opt, log)
	drainCtx, cancelDrain := context.WithCancel(ctx)
	defer cancelDrain()
	chans := newChannelSet(len(cmds))

	st := time.Now()
	fatal := c.dispatch(drainCtx, chans, cmds, opt, gid, log)
	configs.TimeAdd(st, "dispatch", id, &info.ST1)
	if fatal == nil {
		st = time.Now()
		fatal = c.collect(drainCtx, chans, opt, log)
		configs.TimeAdd(st, "collect", id, &info.ST2)
	}

	info.Failure = fatal != nil || chans.failed()
	decision := ""
	if opt.TwoPhase {
		info.IsCommit = !info.Failure
		st = time.Now()
		decision = c.finalize(chans, gid, info.IsCommit, log)
		configs.TimeAdd(st, "finalize", id, &info.ST3)
	}
	c.teardown(chans, cancelDrain)

	res := ""
	if fatal == nil {
		res = aggregate(chans)
		if info.Failure {
			log.Warnf("broadcast finished with errors: %s", res)
		}
	}
	configs.TimeAdd(start, "Broadcast", id, &info.Latency)
	c.stat.Append(info)
	c.record(id, commands, opt, gid, decision, res, fatal)
	return res, fatal
}

func (c *Manager) twoPhaseGID(cmds []NodeCommand, opt Options, log *logrus.Entry) string {
	if !opt.TwoPhase {
		return ""
	}
	gid := c.cfg.GID()
	if c.cfg.UniqueTwoPhaseGID {
		gid = gid + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	} else {
		c.gidWarn.Do(func() {
			log.Warnf("two-phase broadcasts share the transaction name '%s', concurrent broadcasts to the same node will collide", gid)
		})
	}
	seen := set.NewSet()
	for _, cmd := range cmds {
		if !seen.Add(cmd.Node) {
			log.Warnf("node %d is addressed more than once, its second PREPARE TRANSACTION '%s' will fail", cmd.Node, gid)
		}
	}
	return gid
}

// fail records a node failure. It returns the error when the call must abort.
func (c *Manager) fail(chans *channelSet, idx int, nodeErr *utils.NodeError, opt Options, log *logrus.Entry) error {
	if !opt.IgnoreErrors {
		return nodeErr
	}
	log.Warn(nodeErr.Error())
	chans.outcomes[idx] = outcome{err: nodeErr}
	return nil
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", utils.ErrInterrupted, ctx.Err())
}

// teardown closes every opened connection once, after its drain gave it back.
func (c *Manager) teardown(chans *channelSet, cancelDrain context.CancelFunc) {
	cancelDrain()
	var g errgroup.Group
	for _, ch := range chans.chans {
		if ch.conn == nil || ch.closed {
			continue
		}
		ch := ch
		ch.closed = true
		g.Go(func() error {
			if ch.draining {
				<-ch.drained
			}
			ctx, cancel := context.WithTimeout(context.Background(), configs.CloseTimeout)
			defer cancel()
			if err := ch.conn.Close(ctx); err != nil {
				configs.TPrintf("closing connection to node %d: %v", ch.node, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Manager) record(id uint64, commands string, opt Options, gid string, decision string, res string, err error) {
	if c.journal == nil {
		return
	}
	e := &storage.JournalEntry{
		ID:              id,
		Time:            time.Now(),
		Commands:        commands,
		IgnoreErrors:    opt.IgnoreErrors,
		TwoPhase:        opt.TwoPhase,
		SyncCommit:      opt.SyncCommit,
		Sequential:      opt.Sequential,
		SuperConnString: opt.SuperConnString,
		GID:             gid,
		Decision:        decision,
		Result:          res,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if jerr := c.journal.Append(e); jerr != nil {
		c.log.WithError(jerr).Error("failed to journal broadcast")
	}
}
