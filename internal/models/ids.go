package models

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
	nodeID   int64 = 1
)

// SetNodeID selects the snowflake node used for numeric identifiers. It must be
// called before the first identifier is generated to take effect.
func SetNodeID(id int64) {
	nodeID = id
}

// NextID returns a new time ordered numeric identifier.
func NextID() (int64, error) {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	if nodeErr != nil {
		return 0, nodeErr
	}
	return node.Generate().Int64(), nil
}
