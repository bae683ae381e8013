package main

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	checkoutx "github.com/ventaluz/ventaluz/agent/checkout"
	"github.com/ventaluz/ventaluz/agent/orchestrator"
	toolx "github.com/ventaluz/ventaluz/agent/tool"
	configx "github.com/ventaluz/ventaluz/pkg/config"
	_ "github.com/ventaluz/ventaluz/pkg/logger/autoload"
	openaix "github.com/ventaluz/ventaluz/pkg/openaix"
	whatsappx "github.com/ventaluz/ventaluz/pkg/whatsapp"
	"github.com/ventaluz/ventaluz/server"
	"github.com/ventaluz/ventaluz/store"
)

type AppConfig struct {
	DatabaseDSN    string `envconfig:"DATABASE_DSN" required:"true"`
	PaymentBaseURL string `envconfig:"PAYMENT_BASE_URL" required:"true"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	serverCfg := configx.MustNew[server.Config]("SERVER")
	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")
	whatsappCfg := configx.MustNew[whatsappx.Config]("WHATSAPP")

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(appCfg.DatabaseDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("database ping failed")
	}
	if err := store.InitSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema init failed")
	}

	embedder, err := openaix.NewEmbedder(*openaiCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("embedder init failed")
	}

	tenants := store.NewTenantStore(db)
	products := store.NewProductStore(db, embedder)
	carts := store.NewCartStore(db)
	orders := store.NewOrderStore(db)
	history := store.NewHistoryStore(db)
	auth := store.NewAuthStore(db)

	checkout, err := checkoutx.New(carts, orders, products, appCfg.PaymentBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("checkout service init failed")
	}

	channel := whatsappx.MustNew(*whatsappCfg)

	chatModel, err := openaiCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("chat model init failed")
	}

	agent, err := orchestrator.New(chatModel, toolx.Deps{
		Products: products,
		Checkout: checkout,
		Channel:  channel,
	}, orchestrator.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	dispatcher := server.NewDispatcher(tenants, auth, history, channel, agent)
	srv := server.New(*serverCfg, dispatcher, tenants, auth)

	if err := srv.ListenAndServe(serverCfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}
