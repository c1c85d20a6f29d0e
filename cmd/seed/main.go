// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"telegram-proxy-subscription/internal/config"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	pg "telegram-proxy-subscription/internal/infra/db/postgres"
)

// schema holds the full DDL. Everything is idempotent so the tool can run on
// every deploy.
const schema = `
CREATE TABLE IF NOT EXISTS servers (
  id             TEXT PRIMARY KEY,
  name           TEXT NOT NULL,
  scheme         TEXT NOT NULL DEFAULT 'http',
  address        TEXT NOT NULL,
  panel_port     INT  NOT NULL,
  panel_username TEXT NOT NULL,
  panel_password TEXT NOT NULL,
  inbound_id     INT  NOT NULL,
  connect_domain TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
  id               TEXT PRIMARY KEY,
  name             TEXT NOT NULL,
  status           TEXT NOT NULL,
  server_ids       TEXT[] NOT NULL DEFAULT '{}',
  price_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
  stock            INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
  telegram_id   BIGINT PRIMARY KEY,
  role          TEXT NOT NULL DEFAULT 'member',
  balance       BIGINT NOT NULL DEFAULT 0,
  registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subscriptions (
  id           UUID PRIMARY KEY,
  user_id      BIGINT NOT NULL,
  product_id   TEXT NOT NULL,
  name         TEXT NOT NULL,
  active       BOOLEAN NOT NULL DEFAULT TRUE,
  pause        BOOLEAN NOT NULL DEFAULT FALSE,
  expiry_time  TIMESTAMPTZ NOT NULL,
  traffic      DOUBLE PRECISION NOT NULL,
  usage        DOUBLE PRECISION NOT NULL DEFAULT 0,
  quota_warned BOOLEAN NOT NULL DEFAULT FALSE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions (user_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_active_expiry ON subscriptions (expiry_time) WHERE active;

CREATE TABLE IF NOT EXISTS subscription_servers (
  subscription_id UUID NOT NULL REFERENCES subscriptions (id),
  server_id       TEXT NOT NULL,
  remote_email    TEXT NOT NULL,
  usage           DOUBLE PRECISION NOT NULL DEFAULT 0,
  PRIMARY KEY (subscription_id, server_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_subscription_servers_email ON subscription_servers (server_id, remote_email);

CREATE TABLE IF NOT EXISTS invoices (
  order_id        TEXT PRIMARY KEY,
  gateway_uuid    TEXT NOT NULL DEFAULT '',
  amount          TEXT NOT NULL DEFAULT '',
  currency        TEXT NOT NULL DEFAULT '',
  network         TEXT NOT NULL DEFAULT '',
  address         TEXT NOT NULL DEFAULT '',
  pay_url         TEXT NOT NULL DEFAULT '',
  txid            TEXT NOT NULL DEFAULT '',
  payment_status  TEXT NOT NULL DEFAULT '',
  is_final        BOOLEAN NOT NULL DEFAULT FALSE,
  additional_data TEXT NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_invoices_open ON invoices (created_at) WHERE NOT is_final;

CREATE TABLE IF NOT EXISTS invoice_pending (
  order_id   TEXT PRIMARY KEY,
  chat_id    BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS add_queue (
  id         CHAR(26) PRIMARY KEY,
  payload    JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS delete_queue (
  id         CHAR(26) PRIMARY KEY,
  payload    JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notification_queue (
  id         CHAR(26) PRIMARY KEY,
  payload    JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	productRepo := pg.NewProductRepo(pool)
	products, err := productRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list products: %v", err)
	}
	if len(products) > 0 {
		fmt.Printf("%d products already present. No changes.\n", len(products))
		return
	}

	seed := []*model.Product{
		{ID: "trial", Name: "Trial", Status: model.ProductStatusTest, ServerIDs: []string{}, PriceMultiplier: 1, Stock: 1000},
		{ID: "basic", Name: "Basic", Status: model.ProductStatusShop, ServerIDs: []string{}, PriceMultiplier: 1, Stock: 100},
		{ID: "multi", Name: "Multi-Server", Status: model.ProductStatusBoth, ServerIDs: []string{}, PriceMultiplier: 1.5, Stock: 50},
	}
	for _, p := range seed {
		if err := productRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("seed product %q: %v", p.ID, err)
		}
		fmt.Printf("seeded product: %s (multiplier=%.1f, stock=%d)\n", p.Name, p.PriceMultiplier, p.Stock)
	}
	fmt.Println("Seeding complete. Register servers and attach them to products before selling.")
}
