package coordinator

import (
	"context"
	"fmt"
	"shardman/configs"
	"shardman/utils"

	"github.com/sirupsen/logrus"
)

// wrapCommand applies the two-phase envelope and the relaxed durability prefix.
func wrapCommand(sql string, opt Options, gid string) string {
	if opt.TwoPhase {
		sql = fmt.Sprintf("%s; %s; "+configs.PrepareStmt, configs.BeginStmt, sql, gid)
	}
	if !opt.SyncCommit {
		sql = configs.LocalCommitStmt + "; " + sql
	}
	return sql
}

// dispatch opens a connection per command and sends it. Sends do not wait for
// replies unless opt.Sequential is set. A returned error aborts the broadcast.
func (c *Manager) dispatch(ctx context.Context, chans *channelSet, cmds []NodeCommand, opt Options, gid string, log *logrus.Entry) error {
	for _, cmd := range cmds {
		idx := chans.add(cmd)
		ch := chans.chans[idx]
		connStr, err := c.resolver.Resolve(ctx, cmd.Node, opt.SuperConnString)
		if err == nil {
			ch.conn, err = c.dialer.Connect(ctx, connStr)
		}
		if err != nil {
			if ctx.Err() != nil {
				return interrupted(ctx)
			}
			if fatal := c.fail(chans, idx, utils.NewNodeError(cmd.Node, utils.ErrConnect, ch.sql, err), opt, log); fatal != nil {
				return fatal
			}
			continue
		}
		ch.sql = wrapCommand(cmd.SQL, opt, gid)
		log.Debugf("Sending command '%s' to node %d", ch.sql, cmd.Node)
		if err := ch.conn.Send(ctx, ch.sql); err != nil {
			if ctx.Err() != nil {
				return interrupted(ctx)
			}
			if fatal := c.fail(chans, idx, utils.NewNodeError(cmd.Node, utils.ErrSend, ch.sql, err), opt, log); fatal != nil {
				return fatal
			}
			continue
		}
		ch.sent = true
		chans.drain(ctx, idx)
		if !opt.Sequential {
			continue
		}
		select {
		case <-ch.drained:
		case <-ctx.Done():
			return interrupted(ctx)
		}
		if ctx.Err() != nil {
			return interrupted(ctx)
		}
		if ch.recvErr != nil {
			ch.sent = false
			if fatal := c.fail(chans, idx, utils.NewNodeError(cmd.Node, utils.ErrSend, ch.sql, ch.recvErr), opt, log); fatal != nil {
				return fatal
			}
		}
	}
	return nil
}
