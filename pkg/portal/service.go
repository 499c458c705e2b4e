package portal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Service contains the order, document, payment and back-office logic over a Store.
type Service struct {
	store           Store
	nowFn           func() time.Time
	suffixFn        func() string
	logger          OperationLogger
	blobs           BlobStore
	fetcher         URLFetcher
	gateway         PaymentGateway
	secondary       SecondaryWriter
	validate        *validator.Validate
	mainAdminEmail  string
	maxUploadBytes  int64
	checkoutTimeout time.Duration
	currency        string
	readRetryBase   time.Duration
	readRetries     uint64
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:           store,
		nowFn:           now,
		suffixFn:        RandomReferenceSuffix,
		secondary:       InlineSecondaryWriter{},
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		maxUploadBytes:  defaultMaxUploadBytes,
		checkoutTimeout: defaultCheckoutTimeout,
		currency:        defaultCurrency,
		readRetryBase:   defaultReadRetryBase,
		readRetries:     defaultReadRetries,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// WithBlobStore wires the object storage used for documents.
func WithBlobStore(blobs BlobStore) ServiceOption {
	return func(service *Service) {
		service.blobs = blobs
	}
}

// WithURLFetcher wires the public-URL fallback used when building archives.
func WithURLFetcher(fetcher URLFetcher) ServiceOption {
	return func(service *Service) {
		service.fetcher = fetcher
	}
}

// WithPaymentGateway wires the checkout provider.
func WithPaymentGateway(gateway PaymentGateway) ServiceOption {
	return func(service *Service) {
		service.gateway = gateway
	}
}

// WithSecondaryWriter replaces the inline runner for best-effort writes.
func WithSecondaryWriter(writer SecondaryWriter) ServiceOption {
	return func(service *Service) {
		if writer != nil {
			service.secondary = writer
		}
	}
}

// WithMainAdminEmail designates the profile whose role can never change.
func WithMainAdminEmail(email string) ServiceOption {
	return func(service *Service) {
		service.mainAdminEmail = strings.ToLower(strings.TrimSpace(email))
	}
}

// WithMaxUploadBytes caps the accepted document size.
func WithMaxUploadBytes(limit int64) ServiceOption {
	return func(service *Service) {
		if limit > 0 {
			service.maxUploadBytes = limit
		}
	}
}

// WithCheckoutTimeout bounds the checkout creation call.
func WithCheckoutTimeout(timeout time.Duration) ServiceOption {
	return func(service *Service) {
		if timeout > 0 {
			service.checkoutTimeout = timeout
		}
	}
}

// WithDefaultCurrency sets the currency used when a request omits one.
func WithDefaultCurrency(currency string) ServiceOption {
	return func(service *Service) {
		if trimmed := strings.TrimSpace(currency); trimmed != "" {
			service.currency = strings.ToUpper(trimmed)
		}
	}
}

// WithReferenceSuffix overrides the random reference suffix source.
func WithReferenceSuffix(suffix func() string) ServiceOption {
	return func(service *Service) {
		if suffix != nil {
			service.suffixFn = suffix
		}
	}
}

func (service *Service) now() time.Time {
	return service.nowFn().UTC()
}

func (service *Service) validateStruct(value any) error {
	err := service.validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		fields = append(fields, fieldError.Namespace())
	}
	return ValidationError{Fields: fields}
}

func (service *Service) isMainAdmin(profile Profile) bool {
	return service.mainAdminEmail != "" && strings.EqualFold(strings.TrimSpace(profile.Email), service.mainAdminEmail)
}
