package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNodeErrorClassification(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(NewNodeError(3, ErrConnect, "select 1", cause))
	assert.True(t, errors.Is(err, ErrConnect))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrSend))
	assert.Equal(t, "Failed to connect to node 3: connection refused", err.Error())
	assert.Equal(t, "<error>3:Connection failure: connection refused</error>", err.(*NodeError).Marker())
}

func TestNodeErrorWithoutCause(t *testing.T) {
	err := NewNodeError(1, ErrAmbiguous, "select a from t", nil)
	assert.Equal(t, "Query 'select a from t' doesn't return single tuple at node 1", err.Error())
	assert.Equal(t, "<error>1:Query 'select a from t' doesn't return single tuple</error>", err.Marker())
	assert.Nil(t, errors.Unwrap(err))
}

func TestStatLog(t *testing.T) {
	st := NewStat()
	a := NewInfo(1, 3)
	a.TwoPhase, a.IsCommit, a.Latency = true, true, 2*time.Millisecond
	b := NewInfo(2, 2)
	b.Failure, b.Latency = true, 4*time.Millisecond
	st.Append(a)
	st.Append(b)
	log := st.Log()
	assert.Contains(t, log, "broadcast_cnt:2;")
	assert.Contains(t, log, "node_cnt:5;")
	assert.Contains(t, log, "two_phase_cnt:1;committed_cnt:1;failed_cnt:1;")
	assert.Contains(t, log, "ave_latency:3ms;")
	assert.True(t, strings.HasPrefix(st.Range(), "Time range ["))
	st.Clear()
	assert.Contains(t, st.Log(), "broadcast_cnt:0;")
	assert.Contains(t, st.Log(), "p99_latency:nil;")
}
