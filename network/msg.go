package network

import (
	"context"
)

// Reply is the last result a node returned for one command.
type Reply struct {
	// Tuples is set when the statement described a row set.
	Tuples bool
	// Rows holds the raw text values, a nil cell is SQL NULL.
	Rows         [][][]byte
	RowsAffected int64
	// Err is the error the node reported while executing the command.
	Err error
}

// Conn is a connection to one participant node, owned by a single channel.
type Conn interface {
	// Send issues sql without waiting for it to complete.
	Send(ctx context.Context, sql string) error
	// Receive drains every result of the last Send and returns the final one.
	// An error means the connection failed, not that the command did.
	Receive(ctx context.Context) (*Reply, error)
	// Exec runs sql to completion.
	Exec(ctx context.Context, sql string) error
	Close(ctx context.Context) error
}

// Dialer opens participant connections.
type Dialer interface {
	Connect(ctx context.Context, connString string) (Conn, error)
}

// BroadcastRequest is the wire form of one broadcast call.
type BroadcastRequest struct {
	Commands        string `json:"commands"`
	IgnoreErrors    bool   `json:"ignore_errors"`
	TwoPhase        bool   `json:"two_phase"`
	SyncCommit      bool   `json:"sync_commit"`
	Sequential      bool   `json:"sequential"`
	SuperConnString bool   `json:"super_connstr"`
}

type BroadcastResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}
