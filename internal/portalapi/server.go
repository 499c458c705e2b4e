package portalapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/cartegrise/internal/database"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/gateway/midtrans"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/gateway/sumup"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/objectstore"
	"github.com/MarkoPoloResearchLab/cartegrise/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

// Run boots the portal API using the supplied configuration.
func Run(ctx context.Context, cfg Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("zap init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	handle, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = handle.Close() }()
	if err := database.PrepareSchema(ctx, handle); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}

	blobs, err := objectstore.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	gateway, err := newPaymentGateway(cfg.Gateway)
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}

	secondary := portal.NewAsyncSecondaryWriter()
	service, err := newService(cfg, gormstore.New(handle.DB), logger,
		portal.WithBlobStore(blobs),
		portal.WithURLFetcher(objectstore.NewHTTPFetcher(nil)),
		portal.WithPaymentGateway(gateway),
		portal.WithSecondaryWriter(secondary),
	)
	if err != nil {
		return fmt.Errorf("portal service init: %w", err)
	}

	sessionValidator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: []byte(cfg.SessionSigningKey),
		Issuer:     cfg.SessionIssuer,
		CookieName: cfg.SessionCookieName,
	})
	if err != nil {
		return fmt.Errorf("session validator: %w", err)
	}

	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}
	router := setupRouter(cfg, handler, sessionValidator)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portal api listening", zap.String("addr", cfg.ListenAddr), zap.String("payment_provider", cfg.Gateway.Provider))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		if drainErr := secondary.Wait(shutdownCtx); drainErr != nil {
			logger.Warn("secondary writes not drained", zap.Error(drainErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newService(cfg Config, store portal.Store, logger *zap.Logger, options ...portal.ServiceOption) (*portal.Service, error) {
	options = append([]portal.ServiceOption{
		portal.WithOperationLogger(newOperationLogger(logger)),
		portal.WithMainAdminEmail(cfg.MainAdminEmail),
		portal.WithMaxUploadBytes(cfg.MaxUploadBytes),
		portal.WithCheckoutTimeout(cfg.GatewayTimeout),
		portal.WithDefaultCurrency(cfg.Currency),
	}, options...)
	return portal.NewService(store, time.Now, options...)
}

func newPaymentGateway(cfg GatewayConfig) (portal.PaymentGateway, error) {
	switch cfg.Provider {
	case GatewayProviderMidtrans:
		return midtrans.New(midtrans.Config{
			ServerKey:  cfg.MidtransServerKey,
			Production: cfg.MidtransProduction,
		})
	case GatewayProviderSumUp:
		return sumup.New(sumup.Config{
			BaseURL:      cfg.SumUpBaseURL,
			APIKey:       cfg.SumUpAPIKey,
			MerchantCode: cfg.SumUpMerchantCode,
			ReturnURL:    cfg.SumUpReturnURL,
			RedirectURL:  cfg.SumUpRedirectURL,
		})
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

func setupRouter(cfg Config, handler *httpHandler, validator *sessionvalidator.Validator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/webhooks/payments", handler.handlePaymentWebhook)

	api := router.Group("/api")
	api.Use(validator.GinMiddleware(claimsContextKey))

	api.GET("/session", handler.handleSession)
	api.POST("/profile/bootstrap", handler.handleBootstrapProfile)
	api.GET("/profile", handler.handleGetProfile)
	api.PATCH("/profile", handler.handleUpdateProfile)

	api.POST("/orders", handler.handleCreateOrder)
	api.GET("/orders", handler.handleListOrders)
	api.GET("/orders/:id", handler.handleGetOrder)
	api.GET("/orders/:id/documents", handler.handleListMyDocuments)

	api.POST("/documents/upload", handler.handleUploadDocument)

	api.POST("/payments/create-checkout", handler.handleCreateCheckout)
	api.POST("/payments/create-intent", handler.handleCreateIntent)
	api.GET("/payments/verify-payment/:checkoutId", handler.handleVerifyPayment)

	admin := api.Group("/admin")
	admin.GET("/orders", handler.handleAdminListOrders)
	admin.GET("/orders/:id", handler.handleAdminOrderDetail)
	admin.PATCH("/orders/:id/status", handler.handleAdminUpdateStatus)
	admin.GET("/orders/:id/documents", handler.handleAdminListDocuments)
	admin.GET("/orders/:id/download-documents", handler.handleAdminDownloadDocuments)
	admin.DELETE("/documents/:id", handler.handleAdminDeleteDocument)
	admin.GET("/users", handler.handleAdminListUsers)
	admin.PATCH("/users/:id/role", handler.handleAdminChangeRole)
	admin.GET("/stats", handler.handleAdminStats)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *portal.Service
	cfg     Config
}

func getClaims(ctx *gin.Context) *sessionvalidator.Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	return claims
}

// resolveCaller derives the caller and its role from the session on every request.
// It writes the error response itself and reports false when the request must stop.
func (handler *httpHandler) resolveCaller(ctx *gin.Context) (portal.Caller, bool) {
	claims := getClaims(ctx)
	if claims == nil {
		handler.respondError(ctx, portal.ErrUnauthenticated)
		return portal.Caller{}, false
	}
	caller, err := handler.service.ResolveCaller(ctx.Request.Context(), claims.GetUserID())
	if err != nil {
		handler.respondError(ctx, err)
		return portal.Caller{}, false
	}
	return caller, true
}

func zapRequestFields(ctx *gin.Context, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	}
}
