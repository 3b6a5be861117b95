package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (MART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (MART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	Auth         AuthConfig
	Delivery     DeliveryConfig
	CouponFilter CouponFilterConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AuthConfig controls JWT issuance.
type AuthConfig struct {
	JWTSecret string        `usage:"HMAC secret for access tokens (MART_AUTH_JWT_SECRET)" flag:"jwt-secret"`
	TokenTTL  time.Duration `default:"24h" usage:"Access token lifetime" flag:"token-ttl"`
}

// DeliveryConfig holds the delivery tiers and the auto-apply promotion.
// Amounts are in the store currency.
type DeliveryConfig struct {
	FreeAbove     float64 `default:"3000" usage:"Net amount above which delivery is free" flag:"free-above"`
	ReducedAt     float64 `default:"1000" usage:"Net amount at which the reduced charge starts" flag:"reduced-at"`
	ReducedCharge float64 `default:"25"   usage:"Delivery charge in the reduced tier" flag:"reduced-charge"`
	BaseCharge    float64 `default:"50"   usage:"Delivery charge below the reduced tier" flag:"base-charge"`
	AutoCode      string  `default:"AUTO50" usage:"Coupon auto-applied once the subtotal qualifies (empty disables)" flag:"auto-code"`
	AutoAt        float64 `default:"2000" usage:"Subtotal at which the auto coupon is probed" flag:"auto-at"`
}

// Tariff converts the delivery configuration into the pricing engine's terms.
func (d DeliveryConfig) Tariff() pricing.Tariff {
	return pricing.Tariff{
		FreeDeliveryAbove: decimal.NewFromFloat(d.FreeAbove),
		ReducedDeliveryAt: decimal.NewFromFloat(d.ReducedAt),
		ReducedCharge:     decimal.NewFromFloat(d.ReducedCharge),
		BaseCharge:        decimal.NewFromFloat(d.BaseCharge),
		AutoApplyCode:     d.AutoCode,
		AutoApplyAt:       decimal.NewFromFloat(d.AutoAt),
	}
}

// CouponFilterConfig sizes the in-memory coupon code filter.
type CouponFilterConfig struct {
	Capacity          uint    `default:"10000" usage:"Expected number of coupon codes" flag:"filter-capacity"`
	FalsePositiveRate float64 `default:"0.01"  usage:"Acceptable false positive rate" flag:"filter-fpr"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MART",
		Files:     []string{"config.yaml", "/etc/freshmart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set MART_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set MART_AUTH_JWT_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's MART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Auth.JWTSecret == "" {
		if v := os.Getenv("JWT_SECRET"); v != "" {
			c.Auth.JWTSecret = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
