// Package midtrans adapts the Midtrans Snap and Core APIs to portal.PaymentGateway.
package midtrans

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	midtransgo "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

const (
	// attemptSeparator joins the portal order id and the attempt suffix in a Midtrans order_id.
	attemptSeparator = "."
	// SettlementCurrency is the only currency Snap transactions are charged in.
	SettlementCurrency = "IDR"
)

var errMissingServerKey = errors.New("midtrans: server key is required")

type snapAPI interface {
	CreateTransaction(request *snap.Request) (*snap.Response, *midtransgo.Error)
}

type statusAPI interface {
	CheckTransaction(param string) (*coreapi.TransactionStatusResponse, *midtransgo.Error)
}

// Config selects the Midtrans account and environment.
type Config struct {
	ServerKey  string
	Production bool
}

// Driver implements portal.PaymentGateway on Midtrans.
type Driver struct {
	snap   snapAPI
	status statusAPI
	now    func() time.Time
}

// New returns a Driver for cfg.
func New(cfg Config) (*Driver, error) {
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return nil, errMissingServerKey
	}
	environment := midtransgo.Sandbox
	if cfg.Production {
		environment = midtransgo.Production
	}
	var snapClient snap.Client
	snapClient.New(cfg.ServerKey, environment)
	var coreClient coreapi.Client
	coreClient.New(cfg.ServerKey, environment)
	return newDriver(&snapClient, &coreClient, time.Now), nil
}

func newDriver(snapClient snapAPI, statusClient statusAPI, now func() time.Time) *Driver {
	return &Driver{snap: snapClient, status: statusClient, now: now}
}

// CreateCheckout opens a Snap transaction and returns its redirect page.
func (driver *Driver) CreateCheckout(ctx context.Context, request portal.CheckoutRequest) (portal.Checkout, error) {
	orderID := driver.attemptID(request.Reference)
	response, err := driver.createTransaction(ctx, orderID, request)
	if err != nil {
		return portal.Checkout{}, err
	}
	return portal.Checkout{
		ID:          orderID,
		Reference:   request.Reference,
		Status:      portal.PaymentStatusPending,
		Amount:      request.Amount,
		Currency:    request.Currency,
		RedirectURL: response.RedirectURL,
	}, nil
}

// CreateIntent opens a Snap transaction for the embedded widget; the Snap token is the client secret.
func (driver *Driver) CreateIntent(ctx context.Context, request portal.CheckoutRequest) (portal.Intent, error) {
	orderID := driver.attemptID(request.Reference)
	response, err := driver.createTransaction(ctx, orderID, request)
	if err != nil {
		return portal.Intent{}, err
	}
	return portal.Intent{ID: orderID, ClientSecret: response.Token}, nil
}

// GetCheckout reads the transaction status of a Midtrans order id.
func (driver *Driver) GetCheckout(ctx context.Context, checkoutID string) (portal.Checkout, error) {
	response, err := callWithContext(ctx, func() (*coreapi.TransactionStatusResponse, *midtransgo.Error) {
		return driver.status.CheckTransaction(checkoutID)
	})
	if err != nil {
		return portal.Checkout{}, err
	}
	amount, parseErr := decimal.NewFromString(strings.TrimSpace(response.GrossAmount))
	if parseErr != nil {
		amount = decimal.Zero
	}
	return portal.Checkout{
		ID:        checkoutID,
		Reference: ReferenceFromOrderID(response.OrderID),
		Status:    MapStatus(response.TransactionStatus, response.FraudStatus),
		Amount:    amount,
		Currency:  response.Currency,
	}, nil
}

func (driver *Driver) createTransaction(ctx context.Context, orderID string, request portal.CheckoutRequest) (*snap.Response, error) {
	if err := checkChargeable(request); err != nil {
		return nil, err
	}
	grossAmount := request.Amount.IntPart()
	name := request.Description
	if name == "" {
		name = request.Reference
	}
	snapRequest := &snap.Request{
		TransactionDetails: midtransgo.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: grossAmount,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		Items: &[]midtransgo.ItemDetails{{
			ID:    request.Reference,
			Name:  truncate(name, 50),
			Price: grossAmount,
			Qty:   1,
		}},
	}
	return callWithContext(ctx, func() (*snap.Response, *midtransgo.Error) {
		return driver.snap.CreateTransaction(snapRequest)
	})
}

// checkChargeable rejects requests Snap would silently charge as a different amount.
// An empty currency means the settlement currency.
func checkChargeable(request portal.CheckoutRequest) error {
	currency := strings.ToUpper(strings.TrimSpace(request.Currency))
	if currency != "" && currency != SettlementCurrency {
		return portal.NewGatewayStatusError(http.StatusUnprocessableEntity, fmt.Sprintf("currency %s is not supported, use %s", currency, SettlementCurrency))
	}
	if !request.Amount.Equal(request.Amount.Truncate(0)) {
		return portal.NewGatewayStatusError(http.StatusUnprocessableEntity, fmt.Sprintf("amount %s must be a whole number of %s", request.Amount.String(), SettlementCurrency))
	}
	return nil
}

// attemptID suffixes the order id so that a repeated checkout gets a fresh Midtrans order_id.
func (driver *Driver) attemptID(reference string) string {
	return reference + attemptSeparator + strconv.FormatInt(driver.now().UnixMilli(), 36)
}

// ReferenceFromOrderID recovers the portal order id from a Midtrans order_id.
func ReferenceFromOrderID(orderID string) string {
	if index := strings.LastIndex(orderID, attemptSeparator); index > 0 {
		return orderID[:index]
	}
	return orderID
}

// MapStatus normalizes a Midtrans transaction status.
func MapStatus(transactionStatus string, fraudStatus string) portal.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "settlement":
		return portal.PaymentStatusPaid
	case "capture":
		if strings.EqualFold(fraudStatus, "challenge") {
			return portal.PaymentStatusPending
		}
		return portal.PaymentStatusPaid
	case "deny", "cancel", "failure", "refund", "partial_refund", "chargeback", "partial_chargeback":
		return portal.PaymentStatusFailed
	case "expire":
		return portal.PaymentStatusExpired
	default:
		return portal.PaymentStatusPending
	}
}

type callResult[T any] struct {
	value T
	err   error
}

// callWithContext runs a blocking SDK call and stops waiting when ctx ends.
func callWithContext[T any](ctx context.Context, call func() (T, *midtransgo.Error)) (T, error) {
	results := make(chan callResult[T], 1)
	go func() {
		value, sdkErr := call()
		if sdkErr != nil {
			results <- callResult[T]{value: value, err: classify(sdkErr)}
			return
		}
		results <- callResult[T]{value: value}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, portal.ClassifyNetworkError(ctx.Err())
	case result := <-results:
		return result.value, result.err
	}
}

func classify(sdkErr *midtransgo.Error) error {
	if sdkErr.StatusCode != 0 {
		return portal.NewGatewayStatusError(sdkErr.StatusCode, sdkErr.Message)
	}
	if sdkErr.RawError != nil {
		return portal.ClassifyNetworkError(sdkErr.RawError)
	}
	return portal.ClassifyNetworkError(fmt.Errorf("midtrans: %s", sdkErr.Message))
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
