package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure classes of a broadcast.
var (
	ErrParse       = errors.New("invalid command string")
	ErrConfig      = errors.New("shardlord connection string was not specified in configuration file")
	ErrLookup      = errors.New("failed to fetch connection string")
	ErrConnect     = errors.New("connection failure")
	ErrSend        = errors.New("failed to send query")
	ErrReceive     = errors.New("failed to receive response")
	ErrCommand     = errors.New("command failed")
	ErrAmbiguous   = errors.New("query doesn't return single tuple")
	ErrFinalize    = errors.New("two-phase finalize failed")
	ErrInterrupted = errors.New("broadcast interrupted")
)

// NodeError is a failure attributed to one node of a broadcast.
type NodeError struct {
	Node  int
	Kind  error
	SQL   string
	Cause error
}

func NewNodeError(node int, kind error, sql string, cause error) *NodeError {
	return &NodeError{Node: node, Kind: kind, SQL: sql, Cause: cause}
}

// Reason is the text placed inside a tolerant-mode error marker.
func (e *NodeError) Reason() string {
	var reason string
	switch e.Kind {
	case ErrSend:
		reason = fmt.Sprintf("Failed to send query '%s'", e.SQL)
	case ErrReceive:
		reason = fmt.Sprintf("Failed to receive response for '%s'", e.SQL)
	case ErrCommand:
		reason = fmt.Sprintf("Command %s failed", e.SQL)
	case ErrAmbiguous:
		reason = fmt.Sprintf("Query '%s' doesn't return single tuple", e.SQL)
	case ErrConnect:
		reason = "Connection failure"
	default:
		reason = e.Kind.Error()
	}
	if e.Cause != nil {
		reason += ": " + e.Cause.Error()
	}
	return reason
}

// Marker renders the error the way it appears inside an aggregate response.
func (e *NodeError) Marker() string {
	return fmt.Sprintf("<error>%d:%s</error>", e.Node, e.Reason())
}

func (e *NodeError) Error() string {
	var msg string
	switch e.Kind {
	case ErrConnect:
		msg = fmt.Sprintf("Failed to connect to node %d", e.Node)
	case ErrSend:
		msg = fmt.Sprintf("Failed to send query '%s' to node %d", e.SQL, e.Node)
	case ErrReceive:
		msg = fmt.Sprintf("Failed to receive response for query %s from node %d", e.SQL, e.Node)
	case ErrCommand:
		msg = fmt.Sprintf("Command %s failed at node %d", e.SQL, e.Node)
	case ErrAmbiguous:
		msg = fmt.Sprintf("Query '%s' doesn't return single tuple at node %d", e.SQL, e.Node)
	default:
		msg = fmt.Sprintf("node %d: %s", e.Node, e.Kind.Error())
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}
