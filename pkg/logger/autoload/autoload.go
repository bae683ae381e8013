// Package autoload initializes the global logger from LOG_* environment
// variables on blank import.
package autoload

import (
	configx "github.com/ventaluz/ventaluz/pkg/config"
	logx "github.com/ventaluz/ventaluz/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
