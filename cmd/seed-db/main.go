// Command seed-db applies the schema and loads the florist catalog from a
// JSON seed file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/florist/internal/cache"
	"github.com/xenking/florist/internal/repository"
)

func main() {
	var (
		databaseURL string
		redisURL    string
		seedFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL whose catalog cache is dropped after seeding (or REDIS_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/florist.json", "path to the seed JSON file")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, redisURL, seedFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, redisURL, seedFile string) error {
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	seed, err := decodeSeed(data)
	if err != nil {
		return err
	}

	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)
	for _, p := range seed.Products {
		if err := products.Upsert(ctx, p); err != nil {
			return err
		}
	}
	lg.Info("Upserted products", zap.Int("count", len(seed.Products)))

	suppliers := repository.NewSupplierRepository(pool)
	for _, s := range seed.Suppliers {
		if err := suppliers.Upsert(ctx, s); err != nil {
			return err
		}
	}
	lg.Info("Upserted suppliers", zap.Int("count", len(seed.Suppliers)))

	coupons := repository.NewCouponRepository(pool)
	codes := make([]string, 0, len(seed.Coupons))
	for _, c := range seed.Coupons {
		if err := coupons.Upsert(ctx, c); err != nil {
			return err
		}
		codes = append(codes, c.Code)
	}
	lg.Info("Upserted coupons", zap.Strings("codes", codes))

	shipping := repository.NewShippingRepository(pool)
	for _, m := range seed.ShippingMethods {
		if err := shipping.Upsert(ctx, m); err != nil {
			return err
		}
	}
	lg.Info("Upserted shipping methods", zap.Int("count", len(seed.ShippingMethods)))

	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()
	if err := cache.New(client, time.Minute).InvalidateCatalog(ctx, codes...); err != nil {
		return err
	}
	lg.Info("Dropped cached catalog")
	return nil
}
