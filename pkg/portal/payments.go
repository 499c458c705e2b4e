package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	defaultReadRetryBase = 200 * time.Millisecond
	defaultReadRetries   = 2
)

// CheckoutInput is the typed payment request for an order.
type CheckoutInput struct {
	OrderID  string           `json:"orderId" validate:"required"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	Currency string           `json:"currency" validate:"omitempty,len=3,alpha"`
}

// CheckoutResult points the customer to the hosted payment page.
type CheckoutResult struct {
	CheckoutID  string `json:"checkoutId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// IntentResult carries the handle used by the card widget.
type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// Verification is the outcome of a point-in-time payment check.
type Verification struct {
	CheckoutID string        `json:"checkoutId"`
	Status     PaymentStatus `json:"status"`
	OrderID    string        `json:"orderId,omitempty"`
	Updated    bool          `json:"updated"`
}

// WithReadRetry configures the backoff applied to idempotent gateway reads.
func WithReadRetry(base time.Duration, retries uint64) ServiceOption {
	return func(service *Service) {
		if base <= 0 {
			base = time.Millisecond
		}
		service.readRetryBase = base
		service.readRetries = retries
	}
}

// CreateCheckout opens a hosted checkout for one of the caller's orders.
// The gateway call is bounded by the checkout timeout; persisting the checkout id is best-effort.
func (service *Service) CreateCheckout(ctx context.Context, caller Caller, input CheckoutInput) (CheckoutResult, error) {
	order, request, err := service.preparePayment(ctx, caller, input)
	if err != nil {
		return CheckoutResult{}, err
	}

	callContext, cancel := context.WithTimeout(ctx, service.checkoutTimeout)
	defer cancel()
	checkout, err := service.gateway.CreateCheckout(callContext, request)
	if err != nil {
		gatewayError := ClassifyNetworkError(err)
		service.logOperation(ctx, OperationLog{Operation: operationCreateCheckout, ActorID: caller.ID, OrderID: order.ID, Error: gatewayError})
		return CheckoutResult{}, gatewayError
	}
	service.logOperation(ctx, OperationLog{Operation: operationCreateCheckout, ActorID: caller.ID, OrderID: order.ID, SubjectID: checkout.ID})

	service.submitSecondary(ctx, OperationLog{Operation: operationPersistIntent, ActorID: caller.ID, OrderID: order.ID, SubjectID: checkout.ID}, func(taskContext context.Context) error {
		return service.store.SetOrderPaymentIntent(taskContext, order.ID, checkout.ID, false, service.now())
	})
	service.recordPayment(ctx, caller, order.ID, checkout.ID, request)

	return CheckoutResult{CheckoutID: checkout.ID, CheckoutURL: checkout.RedirectURL}, nil
}

// CreateIntent opens a card-present payment and puts the order back to pending. An unpaid
// order takes the payment edge from unpaid to pending.
func (service *Service) CreateIntent(ctx context.Context, caller Caller, input CheckoutInput) (IntentResult, error) {
	order, request, err := service.preparePayment(ctx, caller, input)
	if err != nil {
		return IntentResult{}, err
	}
	if order.Status != OrderStatusPending && !CanTransition(order.Status, OrderStatusPending, ActorPayment) {
		return IntentResult{}, fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, order.ID, order.Status)
	}
	intent, err := service.gateway.CreateIntent(ctx, request)
	if err != nil {
		gatewayError := ClassifyNetworkError(err)
		service.logOperation(ctx, OperationLog{Operation: operationCreateIntent, ActorID: caller.ID, OrderID: order.ID, Error: gatewayError})
		return IntentResult{}, gatewayError
	}
	operationError := service.store.SetOrderPaymentIntent(ctx, order.ID, intent.ID, true, service.now())
	service.logOperation(ctx, OperationLog{Operation: operationCreateIntent, ActorID: caller.ID, OrderID: order.ID, SubjectID: intent.ID, Error: operationError})
	if operationError != nil {
		return IntentResult{}, WrapError("service", "order", "payment_intent", operationError)
	}
	service.recordPayment(ctx, caller, order.ID, intent.ID, request)
	return IntentResult{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
}

func (service *Service) preparePayment(ctx context.Context, caller Caller, input CheckoutInput) (Order, CheckoutRequest, error) {
	if service.gateway == nil {
		return Order{}, CheckoutRequest{}, fmt.Errorf("%w: payment gateway is not configured", ErrInvalidServiceConfig)
	}
	if err := service.validateStruct(input); err != nil {
		return Order{}, CheckoutRequest{}, err
	}
	if !input.Amount.IsPositive() {
		return Order{}, CheckoutRequest{}, ErrInvalidAmount
	}
	order, err := service.store.GetOrderForUser(ctx, strings.TrimSpace(input.OrderID), caller.ID)
	if err != nil {
		return Order{}, CheckoutRequest{}, translateNotFound(err, ErrOrderNotFound)
	}
	if !CanTransition(order.Status, OrderStatusProcessing, ActorPayment) {
		return Order{}, CheckoutRequest{}, fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, order.ID, order.Status)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = service.currency
	}
	return order, CheckoutRequest{
		Reference:   order.ID,
		Amount:      input.Amount.Round(2),
		Currency:    currency,
		Description: fmt.Sprintf("Commande %s", order.Reference),
	}, nil
}

func (service *Service) recordPayment(ctx context.Context, caller Caller, orderID string, checkoutID string, request CheckoutRequest) {
	now := service.now()
	payment := Payment{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		CheckoutID: checkoutID,
		Amount:     request.Amount,
		Currency:   request.Currency,
		Status:     PaymentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	service.submitSecondary(ctx, OperationLog{Operation: operationRecordPayment, ActorID: caller.ID, OrderID: orderID, SubjectID: checkoutID}, func(taskContext context.Context) error {
		return service.store.InsertPayment(taskContext, payment)
	})
}

// VerifyPayment asks the gateway for the checkout status. A PAID checkout moves the order
// named by the echoed reference to processing; any other status leaves local state alone.
func (service *Service) VerifyPayment(ctx context.Context, checkoutID string) (Verification, error) {
	if service.gateway == nil {
		return Verification{}, fmt.Errorf("%w: payment gateway is not configured", ErrInvalidServiceConfig)
	}
	checkoutID = strings.TrimSpace(checkoutID)
	if checkoutID == "" {
		return Verification{}, fmt.Errorf("%w: checkout id is required", ErrValidation)
	}
	checkout, err := service.readCheckout(ctx, checkoutID)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationVerifyPayment, SubjectID: checkoutID, Error: err})
		return Verification{}, err
	}
	verification := Verification{CheckoutID: checkoutID, Status: checkout.Status, OrderID: checkout.Reference}

	service.submitSecondary(ctx, OperationLog{Operation: operationRecordPayment, OrderID: checkout.Reference, SubjectID: checkoutID, Detail: string(checkout.Status)}, func(taskContext context.Context) error {
		return service.store.UpdatePaymentStatus(taskContext, checkoutID, checkout.Status, service.now())
	})

	if checkout.Status != PaymentStatusPaid {
		service.logOperation(ctx, OperationLog{Operation: operationVerifyPayment, OrderID: checkout.Reference, SubjectID: checkoutID, Detail: string(checkout.Status)})
		return verification, nil
	}
	updated, err := service.markOrderPaid(ctx, checkout)
	service.logOperation(ctx, OperationLog{
		Operation: operationVerifyPayment,
		OrderID:   checkout.Reference,
		SubjectID: checkoutID,
		Detail:    fmt.Sprintf("%s updated=%t", checkout.Status, updated),
		Error:     err,
	})
	if err != nil {
		return Verification{}, err
	}
	verification.Updated = updated
	return verification, nil
}

// HandleWebhook reconciles a gateway callback. The payload only names the checkout;
// the status is always re-read from the gateway.
func (service *Service) HandleWebhook(ctx context.Context, checkoutID string) (Verification, error) {
	return service.VerifyPayment(ctx, checkoutID)
}

func (service *Service) markOrderPaid(ctx context.Context, checkout Checkout) (bool, error) {
	if checkout.Reference == "" {
		return false, nil
	}
	order, err := service.store.GetOrder(ctx, checkout.Reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			service.logOperation(ctx, OperationLog{Operation: operationVerifyPayment, OrderID: checkout.Reference, SubjectID: checkout.ID, Status: operationStatusSkipped, Detail: "no order for echoed reference"})
			return false, nil
		}
		return false, err
	}
	if !checkout.Amount.IsZero() && !checkout.Amount.Equal(order.Price) {
		service.logOperation(ctx, OperationLog{
			Operation: operationVerifyPayment,
			OrderID:   order.ID,
			SubjectID: checkout.ID,
			Status:    operationStatusDegraded,
			Detail:    fmt.Sprintf("amount mismatch: paid %s %s, order price %s", checkout.Amount.StringFixed(2), checkout.Currency, order.Price.StringFixed(2)),
		})
	}
	err = service.store.UpdateOrderStatus(ctx, order.ID, sourcesFor(OrderStatusProcessing, ActorPayment), OrderStatusProcessing, service.now())
	if errors.Is(err, ErrStatusConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (service *Service) readCheckout(ctx context.Context, checkoutID string) (Checkout, error) {
	backoff := retry.WithMaxRetries(service.readRetries, retry.NewExponential(service.readRetryBase))
	var checkout Checkout
	var lastError error
	err := retry.Do(ctx, backoff, func(attemptContext context.Context) error {
		result, err := service.gateway.GetCheckout(attemptContext, checkoutID)
		if err == nil {
			checkout = result
			return nil
		}
		lastError = ClassifyNetworkError(err)
		var gatewayError *GatewayError
		if errors.As(lastError, &gatewayError) && gatewayError.Retryable() {
			return retry.RetryableError(lastError)
		}
		return lastError
	})
	if err != nil {
		if lastError != nil {
			return Checkout{}, lastError
		}
		return Checkout{}, err
	}
	return checkout, nil
}
