package storage

import (
	"context"
	"shardman/configs"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/tidwall/wal"
	"github.com/viney-shih/go-lock"
)

// JournalEntry describes one finished broadcast.
type JournalEntry struct {
	ID              uint64    `json:"id"`
	Time            time.Time `json:"time"`
	Commands        string    `json:"commands"`
	IgnoreErrors    bool      `json:"ignore_errors"`
	TwoPhase        bool      `json:"two_phase"`
	SyncCommit      bool      `json:"sync_commit"`
	Sequential      bool      `json:"sequential"`
	SuperConnString bool      `json:"super_connstr"`
	GID             string    `json:"gid,omitempty"`
	Decision        string    `json:"decision,omitempty"`
	Result          string    `json:"result"`
	Error           string    `json:"error,omitempty"`
}

// Journal appends finished broadcasts to a write-ahead log in batches.
// Nothing is written while a broadcast is in flight.
type Journal struct {
	latch  *lock.CASMutex
	lsn    uint64
	synced uint64
	logs   *wal.Log
	buffer *wal.Batch
	cancel context.CancelFunc
	done   chan struct{}
}

func OpenJournal(path string) (*Journal, error) {
	logs, err := wal.Open(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open journal %s", path)
	}
	lsn, err := logs.LastIndex()
	if err != nil {
		_ = logs.Close()
		return nil, errors.Wrap(err, "failed to read journal index")
	}
	ctx, cancel := context.WithCancel(context.Background())
	res := &Journal{
		latch:  lock.NewCASMutex(),
		lsn:    lsn,
		synced: lsn,
		logs:   logs,
		buffer: &wal.Batch{},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go res.batchSyncLogger(ctx)
	return res, nil
}

func (c *Journal) Append(e *JournalEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	c.latch.Lock()
	defer c.latch.Unlock()
	c.lsn++
	c.buffer.Write(c.lsn, data)
	configs.TPrintf("journal %d-%s", c.lsn, data)
	return nil
}

// Flush writes buffered entries to disk.
func (c *Journal) Flush() error {
	c.latch.Lock()
	defer c.latch.Unlock()
	return c.flushLocked()
}

func (c *Journal) flushLocked() error {
	if c.lsn == c.synced {
		return nil
	}
	if err := c.logs.WriteBatch(c.buffer); err != nil {
		return err
	}
	c.buffer.Clear()
	c.synced = c.lsn
	return nil
}

func (c *Journal) batchSyncLogger(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(configs.LogBatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Flush(); err != nil {
				configs.Logger.WithError(err).Error("journal flush failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Entries returns up to max entries starting at index from (1-based).
func (c *Journal) Entries(from uint64, max int) ([]*JournalEntry, error) {
	if err := c.Flush(); err != nil {
		return nil, err
	}
	first, err := c.logs.FirstIndex()
	if err != nil {
		return nil, err
	}
	last, err := c.logs.LastIndex()
	if err != nil {
		return nil, err
	}
	if from < first {
		from = first
	}
	res := make([]*JournalEntry, 0)
	for i := from; i <= last && len(res) < max && i > 0; i++ {
		data, err := c.logs.Read(i)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read journal entry %d", i)
		}
		e := &JournalEntry{}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, errors.Wrapf(err, "corrupted journal entry %d", i)
		}
		res = append(res, e)
	}
	return res, nil
}

// Tail returns the last n entries, oldest first.
func (c *Journal) Tail(n int) ([]*JournalEntry, error) {
	if err := c.Flush(); err != nil {
		return nil, err
	}
	last, err := c.logs.LastIndex()
	if err != nil {
		return nil, err
	}
	from := uint64(1)
	if n > 0 && last > uint64(n) {
		from = last - uint64(n) + 1
	}
	return c.Entries(from, n)
}

func (c *Journal) Close() error {
	c.cancel()
	<-c.done
	if err := c.Flush(); err != nil {
		_ = c.logs.Close()
		return err
	}
	return c.logs.Close()
}
