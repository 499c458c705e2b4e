// Package sumup is a client for the SumUp hosted checkout API.
package sumup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL     = "https://api.sumup.com"
	checkoutsPath      = "/v0.1/checkouts"
	defaultHTTPTimeout = 45 * time.Second
	maxResponseBytes   = 1 << 20
)

var (
	errMissingAPIKey   = errors.New("sumup: api key is required")
	errMissingMerchant = errors.New("sumup: merchant code is required")
)

// Config configures the client.
type Config struct {
	BaseURL      string
	APIKey       string
	MerchantCode string
	// ReturnURL receives the gateway's asynchronous status callbacks.
	ReturnURL string
	// RedirectURL is where the hosted page sends the customer after payment.
	RedirectURL string
	HTTPClient  *http.Client
}

// Client implements portal.PaymentGateway.
type Client struct {
	baseURL      string
	apiKey       string
	merchantCode string
	returnURL    string
	redirectURL  string
	httpClient   *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errMissingAPIKey
	}
	if strings.TrimSpace(cfg.MerchantCode) == "" {
		return nil, errMissingMerchant
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		merchantCode: cfg.MerchantCode,
		returnURL:    cfg.ReturnURL,
		redirectURL:  cfg.RedirectURL,
		httpClient:   httpClient,
	}, nil
}

type hostedCheckout struct {
	Enabled bool `json:"enabled"`
}

type checkoutRequest struct {
	CheckoutReference string          `json:"checkout_reference"`
	Amount            json.Number     `json:"amount"`
	Currency          string          `json:"currency"`
	MerchantCode      string          `json:"merchant_code"`
	Description       string          `json:"description,omitempty"`
	ReturnURL         string          `json:"return_url,omitempty"`
	RedirectURL       string          `json:"redirect_url,omitempty"`
	HostedCheckout    *hostedCheckout `json:"hosted_checkout,omitempty"`
}

type checkoutResponse struct {
	ID                string          `json:"id"`
	CheckoutReference string          `json:"checkout_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	HostedCheckoutURL string          `json:"hosted_checkout_url"`
}

type errorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// CreateCheckout opens a hosted checkout for the order named by request.Reference.
func (client *Client) CreateCheckout(ctx context.Context, request portal.CheckoutRequest) (portal.Checkout, error) {
	payload := client.checkoutPayload(request)
	payload.HostedCheckout = &hostedCheckout{Enabled: true}
	payload.RedirectURL = client.redirectURL
	var response checkoutResponse
	if err := client.do(ctx, http.MethodPost, checkoutsPath, payload, &response); err != nil {
		return portal.Checkout{}, err
	}
	return response.toCheckout(), nil
}

// CreateIntent opens a checkout meant to be completed by the card widget.
// The checkout id is the secret handed to the widget.
func (client *Client) CreateIntent(ctx context.Context, request portal.CheckoutRequest) (portal.Intent, error) {
	var response checkoutResponse
	if err := client.do(ctx, http.MethodPost, checkoutsPath, client.checkoutPayload(request), &response); err != nil {
		return portal.Intent{}, err
	}
	return portal.Intent{ID: response.ID, ClientSecret: response.ID}, nil
}

// GetCheckout reads the current state of a checkout.
func (client *Client) GetCheckout(ctx context.Context, checkoutID string) (portal.Checkout, error) {
	var response checkoutResponse
	if err := client.do(ctx, http.MethodGet, checkoutsPath+"/"+url.PathEscape(checkoutID), nil, &response); err != nil {
		return portal.Checkout{}, err
	}
	return response.toCheckout(), nil
}

func (client *Client) checkoutPayload(request portal.CheckoutRequest) checkoutRequest {
	return checkoutRequest{
		CheckoutReference: request.Reference,
		Amount:            json.Number(request.Amount.StringFixed(2)),
		Currency:          strings.ToUpper(request.Currency),
		MerchantCode:      client.merchantCode,
		Description:       request.Description,
		ReturnURL:         client.returnURL,
	}
}

func (response checkoutResponse) toCheckout() portal.Checkout {
	return portal.Checkout{
		ID:          response.ID,
		Reference:   response.CheckoutReference,
		Status:      MapStatus(response.Status),
		Amount:      response.Amount,
		Currency:    response.Currency,
		RedirectURL: response.HostedCheckoutURL,
	}
}

// MapStatus normalizes a SumUp checkout status. Unknown values read as pending.
func MapStatus(raw string) portal.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SUCCESSFUL":
		return portal.PaymentStatusPaid
	case "FAILED":
		return portal.PaymentStatusFailed
	case "EXPIRED":
		return portal.PaymentStatusExpired
	default:
		return portal.PaymentStatusPending
	}
}

func (client *Client) do(ctx context.Context, method string, path string, body any, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sumup: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("sumup: build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+client.apiKey)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return portal.ClassifyNetworkError(err)
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return portal.ClassifyNetworkError(err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return portal.NewGatewayStatusError(response.StatusCode, errorMessage(raw, response.Status))
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &portal.GatewayError{Failure: portal.GatewayUnavailable, StatusCode: response.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

// errorMessage extracts the gateway message from an object or array error body.
func errorMessage(raw []byte, fallback string) string {
	var single errorResponse
	if err := json.Unmarshal(raw, &single); err == nil && single.Message != "" {
		return single.Message
	}
	var many []errorResponse
	if err := json.Unmarshal(raw, &many); err == nil {
		messages := make([]string, 0, len(many))
		for _, item := range many {
			if item.Message != "" {
				messages = append(messages, item.Message)
			}
		}
		if len(messages) > 0 {
			return strings.Join(messages, "; ")
		}
	}
	return fallback
}
