package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/cartegrise/internal/database"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/portalapi"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/store/migrations"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagListenAddr         = "listen-addr"
	flagDatabaseURL        = "database-url"
	flagAllowedOrigins     = "allowed-origins"
	flagJWTSigningKey      = "jwt-signing-key"
	flagJWTIssuer          = "jwt-issuer"
	flagJWTCookieName      = "jwt-cookie-name"
	flagMainAdminEmail     = "main-admin-email"
	flagMaxUploadBytes     = "max-upload-bytes"
	flagGatewayTimeout     = "gateway-timeout"
	flagCurrency           = "currency"
	flagShutdownTimeout    = "shutdown-timeout"
	flagPaymentProvider    = "payment-provider"
	flagSumUpBaseURL       = "sumup-base-url"
	flagSumUpAPIKey        = "sumup-api-key"
	flagSumUpMerchantCode  = "sumup-merchant-code"
	flagSumUpReturnURL     = "sumup-return-url"
	flagSumUpRedirectURL   = "sumup-redirect-url"
	flagMidtransServerKey  = "midtrans-server-key"
	flagMidtransProduction = "midtrans-production"
	flagStorageEndpoint    = "storage-endpoint"
	flagStorageRegion      = "storage-region"
	flagStorageBucket      = "storage-bucket"
	flagStorageAccessKey   = "storage-access-key"
	flagStorageSecretKey   = "storage-secret-key"
	flagStoragePublicURL   = "storage-public-url"
	flagStoragePathStyle   = "storage-path-style"
	flagEnvFile            = "env-file"
	envPrefix              = "CARTEGRISE"
	defaultEnvFile         = ".env"
)

var serveFlags = []string{
	flagListenAddr, flagDatabaseURL, flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagJWTCookieName,
	flagMainAdminEmail, flagMaxUploadBytes, flagGatewayTimeout, flagCurrency, flagShutdownTimeout,
	flagPaymentProvider, flagSumUpBaseURL, flagSumUpAPIKey, flagSumUpMerchantCode, flagSumUpReturnURL,
	flagSumUpRedirectURL, flagMidtransServerKey, flagMidtransProduction, flagStorageEndpoint, flagStorageRegion,
	flagStorageBucket, flagStorageAccessKey, flagStorageSecretKey, flagStoragePublicURL, flagStoragePathStyle,
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cartegrised: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serveCmd := newServeCommand()
	cmd := &cobra.Command{
		Use:           "cartegrised",
		Short:         "Carte grise ordering portal API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       serveCmd.PreRunE,
		RunE:          serveCmd.RunE,
	}
	cmd.PersistentFlags().String(flagEnvFile, defaultEnvFile, "optional dotenv file loaded before reading the environment")
	cmd.Flags().AddFlagSet(serveCmd.Flags())
	cmd.AddCommand(serveCmd, newMigrateCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	cfg := portalapi.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadServeConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return portalapi.Run(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, "", "HTTP listen address")
	cmd.Flags().String(flagDatabaseURL, "", "postgres:// URL or sqlite path")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagJWTSigningKey, "", "TAuth JWT signing key (required)")
	cmd.Flags().String(flagJWTIssuer, "", "expected JWT issuer")
	cmd.Flags().String(flagJWTCookieName, "", "JWT cookie name")
	cmd.Flags().String(flagMainAdminEmail, "", "email of the protected main administrator (required)")
	cmd.Flags().Int64(flagMaxUploadBytes, 0, "maximum accepted document size in bytes")
	cmd.Flags().Duration(flagGatewayTimeout, 0, "checkout creation timeout (default 30s)")
	cmd.Flags().String(flagCurrency, "", "default payment currency (default EUR, IDR with midtrans)")
	cmd.Flags().Duration(flagShutdownTimeout, 0, "graceful shutdown timeout")
	cmd.Flags().String(flagPaymentProvider, "", "payment provider: sumup or midtrans")
	cmd.Flags().String(flagSumUpBaseURL, "", "SumUp API base URL")
	cmd.Flags().String(flagSumUpAPIKey, "", "SumUp API key")
	cmd.Flags().String(flagSumUpMerchantCode, "", "SumUp merchant code")
	cmd.Flags().String(flagSumUpReturnURL, "", "URL receiving SumUp status callbacks")
	cmd.Flags().String(flagSumUpRedirectURL, "", "URL the customer returns to after payment")
	cmd.Flags().String(flagMidtransServerKey, "", "Midtrans server key")
	cmd.Flags().Bool(flagMidtransProduction, false, "use the Midtrans production environment")
	cmd.Flags().String(flagStorageEndpoint, "", "S3-compatible endpoint (empty for AWS)")
	cmd.Flags().String(flagStorageRegion, "", "object storage region")
	cmd.Flags().String(flagStorageBucket, "", "document bucket (required)")
	cmd.Flags().String(flagStorageAccessKey, "", "object storage access key")
	cmd.Flags().String(flagStorageSecretKey, "", "object storage secret key")
	cmd.Flags().String(flagStoragePublicURL, "", "public base URL of stored documents")
	cmd.Flags().Bool(flagStoragePathStyle, false, "use path-style bucket addressing")

	return cmd
}

func newMigrateCommand() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			if err := v.BindPFlag(flagDatabaseURL, cmd.Flags().Lookup(flagDatabaseURL)); err != nil {
				return err
			}
			databaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
			if databaseURL == "" {
				return fmt.Errorf("%s is required", flagDatabaseURL)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := migrateDatabase(cmd.Context(), databaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", driver)
			return nil
		},
	}
	cmd.Flags().String(flagDatabaseURL, "", "postgres:// URL or sqlite path (required)")
	return cmd
}

// runPostgresMigrations is replaced in tests.
var runPostgresMigrations = migrations.Run

// migrateDatabase applies the goose scripts to Postgres and auto-migrates SQLite.
func migrateDatabase(ctx context.Context, databaseURL string) (database.Driver, error) {
	driver, _, err := database.ResolveDriver(databaseURL)
	if err != nil {
		return "", err
	}
	if driver == database.DriverPostgres {
		return driver, runPostgresMigrations(ctx, databaseURL)
	}
	handle, err := database.Open(ctx, databaseURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = handle.Close() }()
	return handle.Driver, database.PrepareSchema(ctx, handle)
}

// newViper loads the optional dotenv file and binds CARTEGRISE_* variables.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	envFile, err := cmd.Flags().GetString(flagEnvFile)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v, nil
}

func loadServeConfig(cmd *cobra.Command, cfg *portalapi.Config) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	for _, flagName := range serveFlags {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.AllowedOrigins = portalapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.SessionSigningKey = v.GetString(flagJWTSigningKey)
	cfg.SessionIssuer = strings.TrimSpace(v.GetString(flagJWTIssuer))
	cfg.SessionCookieName = strings.TrimSpace(v.GetString(flagJWTCookieName))
	cfg.MainAdminEmail = strings.TrimSpace(v.GetString(flagMainAdminEmail))
	cfg.MaxUploadBytes = v.GetInt64(flagMaxUploadBytes)
	cfg.GatewayTimeout = v.GetDuration(flagGatewayTimeout)
	cfg.Currency = strings.TrimSpace(v.GetString(flagCurrency))
	cfg.ShutdownTimeout = v.GetDuration(flagShutdownTimeout)
	cfg.Gateway = portalapi.GatewayConfig{
		Provider:           strings.TrimSpace(v.GetString(flagPaymentProvider)),
		SumUpBaseURL:       strings.TrimSpace(v.GetString(flagSumUpBaseURL)),
		SumUpAPIKey:        v.GetString(flagSumUpAPIKey),
		SumUpMerchantCode:  strings.TrimSpace(v.GetString(flagSumUpMerchantCode)),
		SumUpReturnURL:     strings.TrimSpace(v.GetString(flagSumUpReturnURL)),
		SumUpRedirectURL:   strings.TrimSpace(v.GetString(flagSumUpRedirectURL)),
		MidtransServerKey:  v.GetString(flagMidtransServerKey),
		MidtransProduction: v.GetBool(flagMidtransProduction),
	}
	cfg.Storage.Endpoint = strings.TrimSpace(v.GetString(flagStorageEndpoint))
	cfg.Storage.Region = strings.TrimSpace(v.GetString(flagStorageRegion))
	cfg.Storage.Bucket = strings.TrimSpace(v.GetString(flagStorageBucket))
	cfg.Storage.AccessKeyID = v.GetString(flagStorageAccessKey)
	cfg.Storage.SecretAccessKey = v.GetString(flagStorageSecretKey)
	cfg.Storage.PublicBaseURL = strings.TrimSpace(v.GetString(flagStoragePublicURL))
	cfg.Storage.UsePathStyle = v.GetBool(flagStoragePathStyle)

	return cfg.Validate()
}
