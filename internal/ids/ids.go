// Package ids generates the compact identifiers used for tasks.
package ids

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init selects the snowflake node for this process. Distinct processes writing to
// the same store must use distinct node IDs (0-1023).
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}

	mu.Lock()
	node = n
	mu.Unlock()

	return nil
}

// NewTaskID returns a Base58 snowflake, at most 11 characters long.
func NewTaskID() string {
	mu.Lock()
	if node == nil {
		// node 0 is always valid
		node, _ = snowflake.NewNode(0)
	}
	n := node
	mu.Unlock()

	return n.Generate().Base58()
}
