// Command coupon-import loads coupon codes from gzipped CSV exports into the
// coupons table.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/florist/internal/cache"
	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/repository"
)

const progressEvery = 1000

func main() {
	var (
		pattern     string
		databaseURL string
		redisURL    string
		dryRun      bool
	)

	flag.StringVar(&pattern, "files", "data/coupons*.csv.gz", "glob of gzipped CSV files to import")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL whose catalog cache is dropped after import (or REDIS_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and de-duplicate without writing")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, pattern, databaseURL, redisURL, dryRun); err != nil {
		lg.Fatal("Coupon import failed", zap.Error(err))
	}
	lg.Info("Coupon import completed")
}

func run(ctx context.Context, lg *zap.Logger, pattern, databaseURL, redisURL string, dryRun bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "expand file pattern")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}

	lg.Info("Parsing files", zap.Strings("files", files))
	parsed, err := parseAll(ctx, lg, files)
	if err != nil {
		return err
	}

	rules, dups := merge(parsed)
	lg.Info("Coupons de-duplicated",
		zap.Int("unique", len(rules)),
		zap.Int("duplicates", dups),
	)
	if dryRun || len(rules) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	if err := writeCoupons(ctx, lg, repository.NewCouponRepository(pool), rules); err != nil {
		return errors.Wrap(err, "write coupons")
	}

	if redisURL == "" {
		return nil
	}
	return invalidate(ctx, redisURL, rules)
}

// parseAll parses every file concurrently and returns the rules in file order.
func parseAll(ctx context.Context, lg *zap.Logger, files []string) ([][]coupon.Rule, error) {
	out := make([][]coupon.Rule, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			rules, err := parseFile(ctx, path)
			if err != nil {
				return err
			}
			lg.Info("Parsed file", zap.String("file", path), zap.Int("rows", len(rules)))
			out[i] = rules
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeCoupons(ctx context.Context, lg *zap.Logger, repo coupon.Repository, rules []coupon.Rule) error {
	for i, r := range rules {
		if err := repo.Upsert(ctx, r); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", r.Code)
		}
		if n := i + 1; n%progressEvery == 0 || n == len(rules) {
			lg.Info("Write progress", zap.Int("written", n), zap.Int("total", len(rules)))
		}
	}
	return nil
}

func invalidate(ctx context.Context, redisURL string, rules []coupon.Rule) error {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	codes := make([]string, len(rules))
	for i, r := range rules {
		codes[i] = r.Code
	}
	return cache.New(client, time.Minute).InvalidateCatalog(ctx, codes...)
}
