package coordinator

import (
	"context"
	"shardman/configs"
	"shardman/utils"

	"github.com/sirupsen/logrus"
)

// collect waits for every in-flight channel, whichever finishes first, and
// files its outcome under its request position.
func (c *Manager) collect(ctx context.Context, chans *channelSet, opt Options, log *logrus.Entry) error {
	pending := chans.inFlight()
	for pending > 0 {
		select {
		case <-ctx.Done():
			return interrupted(ctx)
		case idx := <-chans.ready:
			if ctx.Err() != nil {
				return interrupted(ctx)
			}
			pending--
			ch := chans.chans[idx]
			if !ch.sent {
				// failed while dispatching in sequential mode, already recorded.
				continue
			}
			value, nodeErr := ch.outcome()
			if nodeErr == nil {
				chans.outcomes[idx] = outcome{value: value}
				continue
			}
			if nodeErr.Kind == utils.ErrAmbiguous && opt.IgnoreErrors {
				log.Warn(nodeErr.Error())
				chans.outcomes[idx] = outcome{value: configs.AmbiguousValue}
				continue
			}
			if fatal := c.fail(chans, idx, nodeErr, opt, log); fatal != nil {
				return fatal
			}
		}
	}
	return nil
}
