package afterpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"afterpay-payment-api/models"
)

const RequestTimeout = 30 * time.Second

// Credentials is the API context for one provider call: base URL picked by
// (mode, production flag) plus the merchant key for the target country.
type Credentials struct {
	BaseURL  string
	XAuthKey string
}

// CredentialsResolver yields the API context for a (mode, country)
// combination. A nil result means the method is not configured there.
type CredentialsResolver interface {
	Credentials(ctx context.Context, mode string, countryID int) (*Credentials, error)
}

// Client is the HTTP gateway to the provider's REST API. Every call goes
// through do, which centralizes base-URL resolution, auth injection and JSON
// (de)serialization.
type Client struct {
	resolver CredentialsResolver
	client   *http.Client
}

func NewClient(resolver CredentialsResolver) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		resolver: resolver,
		client: &http.Client{
			Timeout:   RequestTimeout,
			Transport: transport,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path, mode string, countryID int, query url.Values, body, out interface{}) (json.RawMessage, error) {
	creds, err := c.resolver.Credentials(ctx, mode, countryID)
	if err != nil {
		return nil, fmt.Errorf("error resolving API credentials: %v", err)
	}
	if creds == nil {
		return nil, &models.ProviderError{Code: "no_settings",
			Message: fmt.Sprintf("no %s settings for country %d", mode, countryID)}
	}

	endpoint := strings.TrimRight(creds.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %v", err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	httpReq.Header.Set("X-Auth-Key", creds.XAuthKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &models.ProviderError{Code: "transport_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.ProviderError{Code: "transport_error",
			Message: fmt.Sprintf("error reading response body: %v", err)}
	}

	log.Printf("AfterPay %s %s responded %d in %v", method, path, resp.StatusCode, time.Since(start))

	cleanBody := bytes.TrimPrefix(respBody, []byte{0xEF, 0xBB, 0xBF})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if perr := ExtractError(cleanBody); perr != nil {
			return cleanBody, perr
		}
		return cleanBody, &models.ProviderError{
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(cleanBody),
		}
	}

	if out != nil {
		if err := json.Unmarshal(cleanBody, out); err != nil {
			return cleanBody, &models.ProviderError{Code: "invalid_response",
				Message: fmt.Sprintf("error decoding response: %v", err)}
		}
	}
	return cleanBody, nil
}

// Authorize POSTs the full authorization request. The raw payload is kept on
// the result so callers can store it and probe the nested error shapes.
func (c *Client) Authorize(ctx context.Context, mode string, countryID int, req *models.AuthorizationRequest) (*AuthorizeResult, error) {
	var result AuthorizeResult
	raw, err := c.do(ctx, http.MethodPost, "/api/v3/checkout/authorize", mode, countryID, nil, req, &result)
	result.Raw = raw
	if err != nil {
		return &result, err
	}
	return &result, nil
}

// InstallmentPlans looks up the financing options available for a basket
// amount.
func (c *Client) InstallmentPlans(ctx context.Context, mode string, countryID int, amount float64) (*InstallmentPlansResult, error) {
	query := url.Values{}
	query.Set("amount", fmt.Sprintf("%.2f", amount))

	var result InstallmentPlansResult
	if _, err := c.do(ctx, http.MethodGet, "/api/v3/lookup/installment-plans", mode, countryID, query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaleDetails reads the current provider-side state of an order.
func (c *Client) SaleDetails(ctx context.Context, mode string, countryID int, saleID string) (*SaleDetails, error) {
	var result SaleDetails
	if _, err := c.do(ctx, http.MethodGet, "/api/v3/orders/"+saleID, mode, countryID, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Capture confirms the funds of an authorized order.
func (c *Client) Capture(ctx context.Context, mode string, countryID int, saleID string, req *CaptureRequest) (*CaptureResult, error) {
	var result CaptureResult
	if _, err := c.do(ctx, http.MethodPost, "/api/v3/orders/"+saleID+"/captures", mode, countryID, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Void cancels an authorization that has not been captured yet.
func (c *Client) Void(ctx context.Context, mode string, countryID int, saleID string) (*VoidResult, error) {
	var result VoidResult
	if _, err := c.do(ctx, http.MethodPost, "/api/v3/orders/"+saleID+"/voids", mode, countryID, nil, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refund reverses captured order lines.
func (c *Client) Refund(ctx context.Context, mode string, countryID int, saleID string, req *RefundRequest) (*RefundResult, error) {
	var result RefundResult
	if _, err := c.do(ctx, http.MethodPost, "/api/v3/orders/"+saleID+"/refunds", mode, countryID, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
