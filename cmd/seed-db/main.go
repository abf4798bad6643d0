package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloom/checkout/internal/storage/postgres"
)

type variantJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment"`
	Stock           int             `json:"stock"`
}

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Variants []variantJSON   `json:"variants"`
}

type promoJSON struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	DiscountType string          `json:"discountType"`
	Value        decimal.Decimal `json:"value"`
	MinPurchase  decimal.Decimal `json:"minPurchase"`
	MaxDiscount  decimal.Decimal `json:"maxDiscount"`
	UsageLimit   int             `json:"usageLimit"`
	UsagePerUser int             `json:"usagePerUser"`
	ValidFrom    *time.Time      `json:"validFrom"`
	ValidUntil   *time.Time      `json:"validUntil"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		promosFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&promosFile, "promos-file", "db/seed/promos.json", "path to promo codes JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, promosFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, promosFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedPromos(ctx, pool, promosFile); err != nil {
		return errors.Wrap(err, "seed promo codes")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, sku, price, stock_quantity, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	sku = EXCLUDED.sku,
	price = EXCLUDED.price,
	stock_quantity = EXCLUDED.stock_quantity,
	is_active = TRUE`

const upsertVariantSQL = `
INSERT INTO product_variants (id, product_id, name, price_adjustment, stock_quantity, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	price_adjustment = EXCLUDED.price_adjustment,
	stock_quantity = EXCLUDED.stock_quantity,
	is_active = TRUE`

const upsertPromoSQL = `
INSERT INTO promo_codes (id, code, discount_type, discount_value, min_purchase, max_discount,
	usage_limit, usage_per_user, valid_from, valid_until, is_active)
VALUES ($1, UPPER($2), $3, $4, $5, NULLIF($6, 0), $7, $8, $9, $10, TRUE)
ON CONFLICT (code) DO UPDATE SET
	discount_type = EXCLUDED.discount_type,
	discount_value = EXCLUDED.discount_value,
	min_purchase = EXCLUDED.min_purchase,
	max_discount = EXCLUDED.max_discount,
	usage_limit = EXCLUDED.usage_limit,
	usage_per_user = EXCLUDED.usage_per_user,
	valid_from = EXCLUDED.valid_from,
	valid_until = EXCLUDED.valid_until,
	is_active = TRUE`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.SKU, p.Price, p.Stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, upsertVariantSQL, v.ID, p.ID, v.Name, v.PriceAdjustment, v.Stock); err != nil {
				return errors.Wrapf(err, "upsert variant %s of product %s", v.ID, p.ID)
			}
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name), slog.Int("variants", len(p.Variants)))
	}

	return nil
}

func seedPromos(ctx context.Context, pool *pgxpool.Pool, promosFile string) error {
	slog.Info("reading promo codes file", slog.String("path", promosFile))

	data, err := os.ReadFile(promosFile)
	if err != nil {
		return errors.Wrap(err, "read promos file")
	}

	var promos []promoJSON
	if err := json.Unmarshal(data, &promos); err != nil {
		return errors.Wrap(err, "parse promos JSON")
	}

	slog.Info("upserting promo codes", slog.Int("count", len(promos)))

	for _, p := range promos {
		perUser := p.UsagePerUser
		if perUser == 0 {
			perUser = 1
		}
		if _, err := pool.Exec(ctx, upsertPromoSQL,
			p.ID, p.Code, p.DiscountType, p.Value, p.MinPurchase, p.MaxDiscount,
			p.UsageLimit, perUser, p.ValidFrom, p.ValidUntil,
		); err != nil {
			return errors.Wrapf(err, "upsert promo code %s", p.Code)
		}

		slog.Info("upserted promo code", slog.String("code", p.Code), slog.String("type", p.DiscountType))
	}

	return nil
}
