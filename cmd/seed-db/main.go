// Command seed-db provisions a freshmart database: it runs migrations, loads
// the product catalog from a JSON fixture (optionally gzip-compressed),
// seeds the standing coupons, and creates the admin and staff accounts.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
	"github.com/FitnessFreakCoder/freshmart/internal/hash"
	"github.com/FitnessFreakCoder/freshmart/internal/storage/postgres"
)

const seedWorkers = 8

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminPassword string
		staffPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.gz supported)")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the admin account (or MART_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&staffPassword, "staff-password", "", "password for the staff account (or MART_SEED_STAFF_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("MART_SEED_ADMIN_PASSWORD")
	}
	if staffPassword == "" {
		staffPassword = os.Getenv("MART_SEED_STAFF_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminPassword, staffPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminPassword, staffPassword string) error {
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

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedUsers(ctx, postgres.NewUserRepository(pool), adminPassword, staffPassword); err != nil {
		return errors.Wrap(err, "seed users")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	f, err := os.Open(productsFile)
	if err != nil {
		return errors.Wrap(err, "open products file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(productsFile, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "open gzip reader")
		}
		defer zr.Close()
		r = zr
	}

	products, err := decodeProducts(r)
	if err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for i := range products {
		p := &products[i]
		g.Go(func() error {
			if err := repo.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}

// decodeProducts streams the fixture array without buffering the whole
// document.
func decodeProducts(r io.Reader) ([]catalog.Product, error) {
	d := jx.Decode(r, 64*1024)

	var products []catalog.Product
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (catalog.Product, error) {
	var p catalog.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "selling_price":
			p.SellingPrice, err = decodeDecimal(d)
		case "original_price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			if v, err = decodeDecimal(d); err == nil {
				p.OriginalPrice = &v
			}
		case "unit":
			p.Unit, err = d.Str()
		case "stock":
			p.Stock, err = d.Int()
		case "category":
			p.Category, err = d.Str()
		case "image_url":
			p.ImageURL, err = d.Str()
		case "bulk":
			if d.Next() == jx.Null {
				return d.Null()
			}
			p.BulkRule, err = decodeBulkRule(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

func decodeBulkRule(d *jx.Decoder) (*catalog.BulkRule, error) {
	var rule catalog.BulkRule
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "threshold_qty":
			rule.ThresholdQty, err = d.Int()
		case "bundle_price":
			rule.BundlePrice, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding standing coupons")

	expiry := time.Now().AddDate(1, 0, 0)
	coupons := []coupon.Coupon{
		{
			Code:           "NEPAL100",
			DiscountAmount: decimal.NewFromInt(100),
			MinOrderAmount: decimal.NewFromInt(1000),
			ExpiryDate:     expiry,
			Active:         true,
		},
		{
			Code:           "AUTO50",
			DiscountAmount: decimal.NewFromInt(50),
			MinOrderAmount: decimal.NewFromInt(2000),
			ExpiryDate:     expiry,
			Active:         true,
		},
	}

	for i := range coupons {
		c := &coupons[i]
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		slog.Info("upserted coupon",
			slog.String("code", c.Code),
			slog.String("discount", c.DiscountAmount.String()),
		)
	}
	return nil
}

func seedUsers(ctx context.Context, repo *postgres.UserRepository, adminPassword, staffPassword string) error {
	accounts := []struct {
		username string
		email    string
		role     user.Role
		password string
	}{
		{"admin", "admin@freshmart.local", user.RoleAdmin, adminPassword},
		{"staff", "staff@freshmart.local", user.RoleStaff, staffPassword},
	}

	for _, a := range accounts {
		if a.password == "" {
			slog.Info("skipping account, no password configured", slog.String("username", a.username))
			continue
		}

		passwordHash, err := hash.Password(a.password)
		if err != nil {
			return errors.Wrapf(err, "hash password for %s", a.username)
		}

		u := &user.User{
			ID:           uuid.New(),
			Username:     a.username,
			Email:        a.email,
			Role:         a.role,
			PasswordHash: passwordHash,
		}
		if err := repo.Upsert(ctx, u); err != nil {
			return errors.Wrapf(err, "upsert user %s", a.username)
		}
		slog.Info("upserted user", slog.String("username", a.username), slog.String("role", string(a.role)))
	}
	return nil
}
