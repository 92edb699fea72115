package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/config"
	"github.com/clinicore/ledger/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(RegisterSnowflake),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		panic(err)
	}
	return node
}
