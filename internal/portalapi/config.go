package portalapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cartegrise/internal/gateway/midtrans"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/objectstore"
)

const (
	defaultListenAddr       = ":8080"
	defaultDatabaseURL      = "sqlite://cartegrise.db"
	defaultAllowedOrigin    = "http://localhost:3000"
	defaultSessionIssuer    = "tauth"
	defaultSessionCookie    = "app_session"
	defaultGatewayTimeout   = 30 * time.Second
	defaultMaxUploadBytes   = 10 << 20
	defaultCurrency         = "EUR"
	defaultShutdownTimeout  = 10 * time.Second
	defaultStorageRegion    = "eu-west-3"
	claimsContextKey        = "auth_claims"
	GatewayProviderSumUp    = "sumup"
	GatewayProviderMidtrans = "midtrans"
)

// GatewayConfig selects and configures the payment provider.
type GatewayConfig struct {
	Provider           string
	SumUpBaseURL       string
	SumUpAPIKey        string
	SumUpMerchantCode  string
	SumUpReturnURL     string
	SumUpRedirectURL   string
	MidtransServerKey  string
	MidtransProduction bool
}

// Config aggregates runtime settings for the portal API.
type Config struct {
	ListenAddr        string
	DatabaseURL       string
	AllowedOrigins    []string
	SessionSigningKey string
	SessionIssuer     string
	SessionCookieName string
	MainAdminEmail    string
	MaxUploadBytes    int64
	GatewayTimeout    time.Duration
	Currency          string
	ShutdownTimeout   time.Duration
	Gateway           GatewayConfig
	Storage           objectstore.S3Config
}

// Validate fills defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	cfg.SessionIssuer = defaultIfEmpty(cfg.SessionIssuer, defaultSessionIssuer)
	cfg.SessionCookieName = defaultIfEmpty(cfg.SessionCookieName, defaultSessionCookie)
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	cfg.Gateway.Provider = strings.ToLower(defaultIfEmpty(cfg.Gateway.Provider, GatewayProviderSumUp))
	currencyFallback := defaultCurrency
	if cfg.Gateway.Provider == GatewayProviderMidtrans {
		currencyFallback = midtrans.SettlementCurrency
	}
	cfg.Currency = strings.ToUpper(defaultIfEmpty(cfg.Currency, currencyFallback))
	cfg.Storage.Region = defaultIfEmpty(cfg.Storage.Region, defaultStorageRegion)

	if len(cfg.SessionSigningKey) == 0 {
		return fmt.Errorf("jwt signing key is required")
	}
	if strings.TrimSpace(cfg.MainAdminEmail) == "" {
		return fmt.Errorf("main admin email is required")
	}
	if strings.TrimSpace(cfg.Storage.Bucket) == "" {
		return fmt.Errorf("storage bucket is required")
	}
	switch cfg.Gateway.Provider {
	case GatewayProviderSumUp:
		if strings.TrimSpace(cfg.Gateway.SumUpAPIKey) == "" {
			return fmt.Errorf("sumup api key is required")
		}
		if strings.TrimSpace(cfg.Gateway.SumUpMerchantCode) == "" {
			return fmt.Errorf("sumup merchant code is required")
		}
	case GatewayProviderMidtrans:
		if strings.TrimSpace(cfg.Gateway.MidtransServerKey) == "" {
			return fmt.Errorf("midtrans server key is required")
		}
		if cfg.Currency != midtrans.SettlementCurrency {
			return fmt.Errorf("midtrans charges in %s, currency %s is not supported", midtrans.SettlementCurrency, cfg.Currency)
		}
	default:
		return fmt.Errorf("unknown payment provider %q", cfg.Gateway.Provider)
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
