package coordinator

import (
	"context"
	"fmt"
	"shardman/configs"
	"shardman/storage"
	"shardman/utils"
)

// Resolver turns node ids into connection strings.
type Resolver struct {
	coordinatorConnString string
	dir                   storage.Directory
}

func NewResolver(cfg *configs.Config, dir storage.Directory) *Resolver {
	return &Resolver{coordinatorConnString: cfg.CoordinatorConnString, dir: dir}
}

// Resolve returns the connection string of node. Node 0 is the coordinator
// itself and never goes through the directory.
func (r *Resolver) Resolve(ctx context.Context, node int, super bool) (string, error) {
	if node == configs.CoordinatorNode {
		if r.coordinatorConnString == "" {
			return "", utils.ErrConfig
		}
		return r.coordinatorConnString, nil
	}
	if r.dir == nil {
		return "", fmt.Errorf("%w for node %d: no node directory configured", utils.ErrLookup, node)
	}
	return r.dir.ConnString(ctx, node, super)
}
