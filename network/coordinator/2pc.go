package coordinator

import (
	"context"
	"fmt"
	"shardman/configs"
	"shardman/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	decisionCommit   = "commit"
	decisionRollback = "rollback"
)

// finalize sends the same decision to every channel whose command went out,
// including the ones whose command failed. Failures are only logged: the
// decision is already taken.
func (c *Manager) finalize(chans *channelSet, gid string, isCommit bool, log *logrus.Entry) string {
	stmt, decision := fmt.Sprintf(configs.AbortPreparedStmt, gid), decisionRollback
	if isCommit {
		stmt, decision = fmt.Sprintf(configs.CommitPreparedStmt, gid), decisionCommit
	}
	var g errgroup.Group
	for _, ch := range chans.chans {
		if !ch.sent {
			continue
		}
		ch := ch
		g.Go(func() error {
			// the node may still run its command; only the caller's interrupt ends the drain.
			<-ch.drained
			// not derived from the call's context: an interrupted call still has to roll back.
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FinalizeTimeout())
			defer cancel()
			log.Debugf("Sending '%s' to node %d", stmt, ch.node)
			if err := ch.conn.Exec(ctx, stmt); err != nil {
				log.Warnf("%v: %s of 2PC failed at node %d: %v", utils.ErrFinalize, decision, ch.node, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return decision
}
