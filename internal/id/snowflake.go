package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	once    sync.Once
	initErr error
)

// Init sets the node ID used by New. Only the first call has an effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New returns a time-ordered int64 ID. Without a prior Init it uses node 0.
func New() int64 {
	if err := Init(0); err != nil {
		panic(err)
	}
	return node.Generate().Int64()
}
