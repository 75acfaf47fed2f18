package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewRequestID generates an ID suitable for tagging a single HTTP request.
// It uses a snowflake ID with the node taken from SNOWFLAKE_NODE and falls
// back to a KSUID when the node cannot be initialized.
func NewRequestID() string {
	nodeID := int64(1)
	if nodeEnv := os.Getenv("SNOWFLAKE_NODE"); nodeEnv != "" {
		if n, err := strconv.ParseInt(nodeEnv, 10, 64); err == nil {
			nodeID = n
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
