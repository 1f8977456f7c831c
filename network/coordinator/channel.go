package coordinator

import (
	"context"
	"shardman/configs"
	"shardman/network"
	"shardman/utils"
	"strconv"
)

// channel is the connection and pending command of one node in a broadcast.
type channel struct {
	node int
	sql  string
	conn network.Conn
	// sent is set once the command went out; a channel that failed before is skipped by collect and finalize.
	sent     bool
	draining bool
	closed   bool
	reply    *network.Reply
	recvErr  error
	// drained is closed when the draining goroutine gives the connection back.
	drained chan struct{}
}

type outcome struct {
	value string
	err   *utils.NodeError
}

// channelSet holds the channels of one broadcast in request order.
type channelSet struct {
	chans    []*channel
	outcomes []outcome
	// ready receives the index of every channel whose drain finished.
	ready chan int
}

func newChannelSet(n int) *channelSet {
	return &channelSet{
		chans:    make([]*channel, 0, n),
		outcomes: make([]outcome, 0, n),
		ready:    make(chan int, n),
	}
}

func (s *channelSet) add(cmd NodeCommand) int {
	s.chans = append(s.chans, &channel{
		node:    cmd.Node,
		sql:     cmd.SQL,
		drained: make(chan struct{}),
	})
	s.outcomes = append(s.outcomes, outcome{})
	return len(s.chans) - 1
}

// drain hands the channel's connection to a goroutine reading every pending result.
func (s *channelSet) drain(ctx context.Context, idx int) {
	ch := s.chans[idx]
	ch.draining = true
	go func() {
		defer func() {
			close(ch.drained)
			s.ready <- idx
		}()
		ch.reply, ch.recvErr = ch.conn.Receive(ctx)
	}()
}

func (s *channelSet) inFlight() int {
	n := 0
	for _, ch := range s.chans {
		if ch.draining {
			n++
		}
	}
	return n
}

// failed tells whether any node recorded a failure.
func (s *channelSet) failed() bool {
	for _, o := range s.outcomes {
		if o.err != nil {
			return true
		}
	}
	return false
}

// outcome classifies the drained reply.
func (ch *channel) outcome() (string, *utils.NodeError) {
	if ch.recvErr != nil {
		return "", utils.NewNodeError(ch.node, utils.ErrReceive, ch.sql, ch.recvErr)
	}
	r := ch.reply
	if r == nil {
		return "", utils.NewNodeError(ch.node, utils.ErrReceive, ch.sql, nil)
	}
	if r.Err != nil {
		return "", utils.NewNodeError(ch.node, utils.ErrCommand, ch.sql, r.Err)
	}
	if !r.Tuples {
		return strconv.FormatInt(r.RowsAffected, 10), nil
	}
	if len(r.Rows) != 1 || len(r.Rows[0]) == 0 || r.Rows[0][0] == nil {
		return configs.AmbiguousValue, utils.NewNodeError(ch.node, utils.ErrAmbiguous, ch.sql, nil)
	}
	return string(r.Rows[0][0]), nil
}
