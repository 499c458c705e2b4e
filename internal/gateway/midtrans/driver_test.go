package midtrans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	midtransgo "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

var fixedNow = func() time.Time { return time.UnixMilli(1773480600000) }

type stubSnap struct {
	request  *snap.Request
	response *snap.Response
	err      *midtransgo.Error
	block    chan struct{}
}

func (client *stubSnap) CreateTransaction(request *snap.Request) (*snap.Response, *midtransgo.Error) {
	if client.block != nil {
		<-client.block
	}
	client.request = request
	return client.response, client.err
}

type stubStatus struct {
	response *coreapi.TransactionStatusResponse
	err      *midtransgo.Error
}

func (client *stubStatus) CheckTransaction(param string) (*coreapi.TransactionStatusResponse, *midtransgo.Error) {
	return client.response, client.err
}

func TestCreateCheckoutBuildsSnapRequest(test *testing.T) {
	test.Parallel()
	snapClient := &stubSnap{response: &snap.Response{Token: "tok-1", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-1"}}
	driver := newDriver(snapClient, &stubStatus{}, fixedNow)

	checkout, err := driver.CreateCheckout(context.Background(), portal.CheckoutRequest{
		Reference:   "order-1",
		Amount:      decimal.RequireFromString("150000"),
		Currency:    "IDR",
		Description: "Commande EM-1",
	})
	if err != nil {
		test.Fatalf("create checkout: %v", err)
	}
	if checkout.RedirectURL != snapClient.response.RedirectURL || checkout.Reference != "order-1" {
		test.Fatalf("unexpected checkout %+v", checkout)
	}
	if ReferenceFromOrderID(checkout.ID) != "order-1" {
		test.Fatalf("checkout id %q must carry the order id", checkout.ID)
	}
	details := snapClient.request.TransactionDetails
	if details.OrderID != checkout.ID || details.GrossAmt != 150000 {
		test.Fatalf("unexpected transaction details %+v", details)
	}
}

func TestCreateIntentReturnsToken(test *testing.T) {
	test.Parallel()
	driver := newDriver(&stubSnap{response: &snap.Response{Token: "tok-2"}}, &stubStatus{}, fixedNow)
	intent, err := driver.CreateIntent(context.Background(), portal.CheckoutRequest{Reference: "order-2", Amount: decimal.NewFromInt(1000)})
	if err != nil {
		test.Fatalf("create intent: %v", err)
	}
	if intent.ClientSecret != "tok-2" || ReferenceFromOrderID(intent.ID) != "order-2" {
		test.Fatalf("unexpected intent %+v", intent)
	}
}

func TestCreateCheckoutRejectsUnchargeableRequests(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		request portal.CheckoutRequest
	}{
		{name: "euro order", request: portal.CheckoutRequest{Reference: "order-1", Amount: decimal.RequireFromString("29.90"), Currency: "EUR"}},
		{name: "whole euros", request: portal.CheckoutRequest{Reference: "order-1", Amount: decimal.NewFromInt(30), Currency: "eur"}},
		{name: "fractional rupiah", request: portal.CheckoutRequest{Reference: "order-1", Amount: decimal.RequireFromString("150000.50"), Currency: "IDR"}},
	}
	for _, testCase := range testCases {
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			snapClient := &stubSnap{response: &snap.Response{Token: "tok-1"}}
			driver := newDriver(snapClient, &stubStatus{}, fixedNow)
			_, err := driver.CreateCheckout(context.Background(), testCase.request)
			var gatewayError *portal.GatewayError
			if !errors.As(err, &gatewayError) || gatewayError.Failure != portal.GatewayRejected {
				test.Fatalf("expected rejected gateway error, got %v", err)
			}
			if snapClient.request != nil {
				test.Fatalf("no Snap transaction must be opened, got %+v", snapClient.request.TransactionDetails)
			}
			if _, err := driver.CreateIntent(context.Background(), testCase.request); !errors.As(err, &gatewayError) {
				test.Fatalf("expected intent rejection, got %v", err)
			}
		})
	}
}

func TestGetCheckoutMapsTransaction(test *testing.T) {
	test.Parallel()
	status := &stubStatus{response: &coreapi.TransactionStatusResponse{
		OrderID:           "order-1.mmq8x3k0",
		TransactionStatus: "settlement",
		GrossAmount:       "150000.00",
		Currency:          "IDR",
	}}
	driver := newDriver(&stubSnap{}, status, fixedNow)
	checkout, err := driver.GetCheckout(context.Background(), "order-1.mmq8x3k0")
	if err != nil {
		test.Fatalf("get checkout: %v", err)
	}
	if checkout.Status != portal.PaymentStatusPaid || checkout.Reference != "order-1" || !checkout.Amount.Equal(decimal.NewFromInt(150000)) {
		test.Fatalf("unexpected checkout %+v", checkout)
	}
}

func TestSDKErrorsAreClassified(test *testing.T) {
	test.Parallel()
	rejected := newDriver(&stubSnap{err: &midtransgo.Error{StatusCode: 400, Message: "transaction_details.gross_amount is required"}}, &stubStatus{}, fixedNow)
	_, err := rejected.CreateCheckout(context.Background(), portal.CheckoutRequest{Reference: "order-1"})
	var gatewayError *portal.GatewayError
	if !errors.As(err, &gatewayError) || gatewayError.Failure != portal.GatewayRejected || gatewayError.Message != "transaction_details.gross_amount is required" {
		test.Fatalf("expected rejected gateway error, got %v", err)
	}

	outage := newDriver(&stubSnap{}, &stubStatus{err: &midtransgo.Error{StatusCode: 503, Message: "maintenance"}}, fixedNow)
	_, err = outage.GetCheckout(context.Background(), "order-1.x")
	if !errors.As(err, &gatewayError) || gatewayError.Failure != portal.GatewayUnavailable {
		test.Fatalf("expected unavailable gateway error, got %v", err)
	}
}

func TestCallStopsWaitingOnDeadline(test *testing.T) {
	test.Parallel()
	block := make(chan struct{})
	defer close(block)
	driver := newDriver(&stubSnap{block: block, response: &snap.Response{}}, &stubStatus{}, fixedNow)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := driver.CreateCheckout(ctx, portal.CheckoutRequest{Reference: "order-1"})
	var gatewayError *portal.GatewayError
	if !errors.As(err, &gatewayError) || gatewayError.Failure != portal.GatewayTimeout {
		test.Fatalf("expected timeout, got %v", err)
	}
}

func TestMapStatus(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		transaction string
		fraud       string
		expected    portal.PaymentStatus
	}{
		{transaction: "settlement", expected: portal.PaymentStatusPaid},
		{transaction: "capture", fraud: "accept", expected: portal.PaymentStatusPaid},
		{transaction: "capture", fraud: "challenge", expected: portal.PaymentStatusPending},
		{transaction: "pending", expected: portal.PaymentStatusPending},
		{transaction: "deny", expected: portal.PaymentStatusFailed},
		{transaction: "cancel", expected: portal.PaymentStatusFailed},
		{transaction: "expire", expected: portal.PaymentStatusExpired},
	}
	for _, testCase := range testCases {
		if got := MapStatus(testCase.transaction, testCase.fraud); got != testCase.expected {
			test.Fatalf("MapStatus(%q, %q) = %s, want %s", testCase.transaction, testCase.fraud, got, testCase.expected)
		}
	}
}

func TestNewRequiresServerKey(test *testing.T) {
	test.Parallel()
	if _, err := New(Config{}); !errors.Is(err, errMissingServerKey) {
		test.Fatalf("expected errMissingServerKey, got %v", err)
	}
}
