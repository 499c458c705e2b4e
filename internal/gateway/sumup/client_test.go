package sumup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/shopspring/decimal"
)

func newTestClient(test *testing.T, handler http.HandlerFunc) *Client {
	test.Helper()
	server := httptest.NewServer(handler)
	test.Cleanup(server.Close)
	client, err := New(Config{
		BaseURL:      server.URL,
		APIKey:       "sup_sk_test",
		MerchantCode: "MCODE",
		ReturnURL:    "https://portal.example.test/webhooks/payments",
		RedirectURL:  "https://portal.example.test/paiement/retour",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		test.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateCheckoutSendsHostedRequest(test *testing.T) {
	test.Parallel()
	var received map[string]any
	client := newTestClient(test, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/v0.1/checkouts" {
			test.Errorf("unexpected %s %s", request.Method, request.URL.Path)
		}
		if request.Header.Get("Authorization") != "Bearer sup_sk_test" {
			test.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(request.Body).Decode(&received)
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"id":"chk-1","checkout_reference":"order-1","amount":29.9,"currency":"EUR","status":"PENDING","hosted_checkout_url":"https://pay.example.test/chk-1"}`))
	})

	checkout, err := client.CreateCheckout(context.Background(), portal.CheckoutRequest{
		Reference:   "order-1",
		Amount:      decimal.RequireFromString("29.90"),
		Currency:    "eur",
		Description: "Commande EM-1",
	})
	if err != nil {
		test.Fatalf("create checkout: %v", err)
	}
	if checkout.ID != "chk-1" || checkout.Reference != "order-1" || checkout.RedirectURL != "https://pay.example.test/chk-1" || checkout.Status != portal.PaymentStatusPending {
		test.Fatalf("unexpected checkout %+v", checkout)
	}
	if received["checkout_reference"] != "order-1" || received["currency"] != "EUR" || received["merchant_code"] != "MCODE" || received["amount"] != 29.9 {
		test.Fatalf("unexpected payload %v", received)
	}
	hosted, ok := received["hosted_checkout"].(map[string]any)
	if !ok || hosted["enabled"] != true {
		test.Fatalf("expected hosted checkout, got %v", received["hosted_checkout"])
	}
}

func TestCreateIntentUsesCheckoutIDAsSecret(test *testing.T) {
	test.Parallel()
	client := newTestClient(test, func(writer http.ResponseWriter, request *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(request.Body).Decode(&payload)
		if _, hosted := payload["hosted_checkout"]; hosted {
			test.Errorf("intent must not request a hosted page")
		}
		_, _ = writer.Write([]byte(`{"id":"chk-9","status":"PENDING"}`))
	})
	intent, err := client.CreateIntent(context.Background(), portal.CheckoutRequest{Reference: "order-1", Amount: decimal.NewFromInt(10), Currency: "EUR"})
	if err != nil {
		test.Fatalf("create intent: %v", err)
	}
	if intent.ID != "chk-9" || intent.ClientSecret != "chk-9" {
		test.Fatalf("unexpected intent %+v", intent)
	}
}

func TestGetCheckoutMapsStatus(test *testing.T) {
	test.Parallel()
	client := newTestClient(test, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet || request.URL.Path != "/v0.1/checkouts/chk-1" {
			test.Errorf("unexpected %s %s", request.Method, request.URL.Path)
		}
		_, _ = writer.Write([]byte(`{"id":"chk-1","checkout_reference":"order-1","amount":29.9,"currency":"EUR","status":"PAID"}`))
	})
	checkout, err := client.GetCheckout(context.Background(), "chk-1")
	if err != nil {
		test.Fatalf("get checkout: %v", err)
	}
	if checkout.Status != portal.PaymentStatusPaid || !checkout.Amount.Equal(decimal.RequireFromString("29.9")) {
		test.Fatalf("unexpected checkout %+v", checkout)
	}
}

func TestErrorClassification(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name        string
		status      int
		body        string
		failure     portal.GatewayFailure
		message     string
		isRetryable bool
	}{
		{name: "rejected object", status: http.StatusBadRequest, body: `{"message":"Validation error","error_code":"INVALID"}`, failure: portal.GatewayRejected, message: "Validation error"},
		{name: "rejected array", status: http.StatusConflict, body: `[{"message":"Checkout exists"},{"message":"Duplicate reference"}]`, failure: portal.GatewayRejected, message: "Checkout exists; Duplicate reference"},
		{name: "outage", status: http.StatusBadGateway, body: `oops`, failure: portal.GatewayUnavailable, message: "502 Bad Gateway", isRetryable: true},
	}
	for _, testCase := range testCases {
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			client := newTestClient(test, func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.status)
				_, _ = writer.Write([]byte(testCase.body))
			})
			_, err := client.GetCheckout(context.Background(), "chk-1")
			var gatewayError *portal.GatewayError
			if !errors.As(err, &gatewayError) {
				test.Fatalf("expected GatewayError, got %v", err)
			}
			if gatewayError.Failure != testCase.failure || gatewayError.Message != testCase.message || gatewayError.StatusCode != testCase.status {
				test.Fatalf("unexpected error %+v", gatewayError)
			}
			if gatewayError.Retryable() != testCase.isRetryable {
				test.Fatalf("unexpected retryable %v", gatewayError.Retryable())
			}
			if !errors.Is(err, portal.ErrUpstream) {
				test.Fatalf("expected ErrUpstream class")
			}
		})
	}
}

func TestNetworkFailureIsClassified(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	address := server.URL
	server.Close()
	client, err := New(Config{BaseURL: address, APIKey: "key", MerchantCode: "MCODE"})
	if err != nil {
		test.Fatalf("new: %v", err)
	}
	_, err = client.GetCheckout(context.Background(), "chk-1")
	var gatewayError *portal.GatewayError
	if !errors.As(err, &gatewayError) || gatewayError.StatusCode != 0 || !gatewayError.Retryable() {
		test.Fatalf("expected network gateway error, got %v", err)
	}
}

func TestNewValidatesConfig(test *testing.T) {
	test.Parallel()
	if _, err := New(Config{MerchantCode: "M"}); !errors.Is(err, errMissingAPIKey) {
		test.Fatalf("expected errMissingAPIKey, got %v", err)
	}
	if _, err := New(Config{APIKey: "k"}); !errors.Is(err, errMissingMerchant) {
		test.Fatalf("expected errMissingMerchant, got %v", err)
	}
}

func TestMapStatus(test *testing.T) {
	test.Parallel()
	for raw, expected := range map[string]portal.PaymentStatus{
		"PAID":       portal.PaymentStatusPaid,
		"paid":       portal.PaymentStatusPaid,
		"FAILED":     portal.PaymentStatusFailed,
		"EXPIRED":    portal.PaymentStatusExpired,
		"PENDING":    portal.PaymentStatusPending,
		"SOMETHING":  portal.PaymentStatusPending,
		"SUCCESSFUL": portal.PaymentStatusPaid,
	} {
		if got := MapStatus(raw); got != expected {
			test.Fatalf("MapStatus(%q) = %s, want %s", raw, got, expected)
		}
	}
}
