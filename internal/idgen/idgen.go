// Package idgen provides the process-wide snowflake ID generator.
package idgen

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openwaterops/revassure/internal/config"
)

// New builds the snowflake node for this process. Node IDs must be unique
// per running instance writing to the same database.
func New(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNodeID)
}
