package utils

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Stat accumulates per-broadcast Info for periodic reporting.
type Stat struct {
	mu        *sync.Mutex
	infos     []*Info
	beginTS   int
	beginTime time.Time
	endTime   time.Time
}

func NewStat() *Stat {
	res := &Stat{
		infos:     make([]*Info, 0),
		mu:        &sync.Mutex{},
		beginTS:   0,
		beginTime: time.Now(),
		endTime:   time.Now(),
	}
	return res
}

func (st *Stat) Append(info *Info) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.endTime = time.Now()
	st.infos = append(st.infos, info)
}

// Log renders the window since the last Clear as a single key:value; line.
func (st *Stat) Log() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	cnt, twoPhase, committed, failed, nodes := 0, 0, 0, 0, 0
	latencySum, s1, s2, s3 := 0, time.Duration(0), time.Duration(0), time.Duration(0)
	latencies := make([]int, 0)
	for i := st.beginTS; i < len(st.infos); i++ {
		tmp := st.infos[i]
		cnt++
		nodes += tmp.NumPart
		if tmp.TwoPhase {
			twoPhase++
			if tmp.IsCommit {
				committed++
			}
		}
		if tmp.Failure {
			failed++
		}
		if tmp.Latency > 0 {
			latencySum += int(tmp.Latency)
			latencies = append(latencies, int(tmp.Latency))
		}
		s1 += tmp.ST1
		s2 += tmp.ST2
		s3 += tmp.ST3
	}
	msg := "broadcast_cnt:" + strconv.Itoa(cnt) + ";"
	msg += "node_cnt:" + strconv.Itoa(nodes) + ";"
	msg += "two_phase_cnt:" + strconv.Itoa(twoPhase) + ";"
	msg += "committed_cnt:" + strconv.Itoa(committed) + ";"
	msg += "failed_cnt:" + strconv.Itoa(failed) + ";"
	sort.Ints(latencies)
	if len(latencies) > 0 {
		i := Min((len(latencies)*99+99)/100, len(latencies)-1)
		msg += "p99_latency:" + time.Duration(latencies[i]).String() + ";"
		i = Min((len(latencies)+1)/2, len(latencies)-1)
		msg += "p50_latency:" + time.Duration(latencies[i]).String() + ";"
		msg += "ave_latency:" + time.Duration(float64(latencySum)/float64(len(latencies))).String() + ";"
	} else {
		msg += "p99_latency:nil;"
		msg += "p50_latency:nil;"
		msg += "ave_latency:nil;"
	}
	if cnt == 0 {
		msg += "avg_dispatch:nil;avg_collect:nil;avg_finalize:nil;"
	} else {
		msg += "avg_dispatch:" + time.Duration(s1.Nanoseconds()/int64(cnt)).String() + ";"
		msg += "avg_collect:" + time.Duration(s2.Nanoseconds()/int64(cnt)).String() + ";"
		msg += "avg_finalize:" + time.Duration(s3.Nanoseconds()/int64(cnt)).String() + ";"
	}
	return msg
}

func (st *Stat) Range() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return fmt.Sprintf("Time range [%v  ----  %v]", st.beginTime.String(), st.endTime.String())
}

func (st *Stat) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.beginTS = len(st.infos)
	st.beginTime = time.Now()
}

// Info records one broadcast. ST1..ST3 are the dispatch, collect and finalize phases.
type Info struct {
	ID       uint64
	NumPart  int
	TwoPhase bool
	Failure  bool
	IsCommit bool
	Latency  time.Duration
	ST1      time.Duration
	ST2      time.Duration
	ST3      time.Duration
}

func NewInfo(id uint64, nPart int) *Info {
	return &Info{ID: id, NumPart: nPart}
}
