package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CyberWeaverX/poly-survivor/pkg/config"
)

// Client talks to the CLOB REST API. Public endpoints (order books)
// need no auth; order management uses level-2 credential headers.
type Client struct {
	host   string
	creds  *config.Credentials
	signer *Signer
	http   *http.Client
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a CLOB client. creds and signer may be nil for read-only
// use (dry runs only need order books).
func New(host string, creds *config.Credentials, signer *Signer, opts ...Option) *Client {
	c := &Client{
		host:   host,
		creds:  creds,
		signer: signer,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Signer returns the order signer, or nil in read-only mode
func (c *Client) Signer() *Signer {
	return c.signer
}

// GetOrderBook fetches the book for one token
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	u := fmt.Sprintf("%s/book?token_id=%s", c.host, url.QueryEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var book OrderBook
	if err := c.do(req, &book); err != nil {
		return nil, fmt.Errorf("get order book: %w", err)
	}
	return &book, nil
}

// PostOrder submits a signed order
func (c *Client) PostOrder(ctx context.Context, signed *SignedOrder, orderType OrderType) (*PlacedOrder, error) {
	if c.creds == nil {
		return nil, fmt.Errorf("order submission requires credentials")
	}

	body, err := buildPostOrderBody(signed, c.creds.APIKey, orderType)
	if err != nil {
		return nil, err
	}

	req, err := c.authedRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return nil, err
	}

	var placed PlacedOrder
	if err := c.do(req, &placed); err != nil {
		return nil, fmt.Errorf("post order: %w", err)
	}
	if !placed.Success {
		return nil, fmt.Errorf("order rejected: %s", placed.ErrorMsg)
	}
	return &placed, nil
}

// CancelOrder cancels a resting order by ID
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return err
	}

	req, err := c.authedRequest(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

// GetOrder fetches one order by ID
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OpenOrder, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/data/order/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	var order OpenOrder
	if err := c.do(req, &order); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// GetCollateralBalance returns the account's USDC balance. The API
// reports it in 6-decimal integer units.
func (c *Client) GetCollateralBalance(ctx context.Context) (decimal.Decimal, error) {
	path := "/balance-allowance?asset_type=COLLATERAL&signature_type=0"
	req, err := c.authedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, err
	}

	var out struct {
		Balance string `json:"balance"`
	}
	if err := c.do(req, &out); err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}

	raw, err := decimal.NewFromString(out.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", out.Balance, err)
	}
	return raw.Div(microScale), nil
}

// GetOpenOrders lists the account's resting orders
func (c *Client) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/data/orders", nil)
	if err != nil {
		return nil, err
	}

	var orders []OpenOrder
	if err := c.do(req, &orders); err != nil {
		return nil, fmt.Errorf("get open orders: %w", err)
	}
	return orders, nil
}

// buildPostOrderBody serializes the signed order into the wire format
func buildPostOrderBody(signed *SignedOrder, owner string, orderType OrderType) ([]byte, error) {
	raw := signed.Raw

	order := map[string]interface{}{
		"salt":          raw.Salt.Int64(),
		"maker":         raw.Maker.Hex(),
		"signer":        raw.Signer.Hex(),
		"taker":         raw.Taker.Hex(),
		"tokenId":       raw.TokenId.String(),
		"makerAmount":   raw.MakerAmount.String(),
		"takerAmount":   raw.TakerAmount.String(),
		"expiration":    raw.Expiration.String(),
		"nonce":         raw.Nonce.String(),
		"feeRateBps":    raw.FeeRateBps.String(),
		"side":          string(signed.Side),
		"signatureType": 0, // EOA
		"signature":     "0x" + fmt.Sprintf("%x", raw.Signature),
	}

	return json.Marshal(map[string]interface{}{
		"order":     order,
		"owner":     owner,
		"orderType": string(orderType),
	})
}

// authedRequest builds a request with level-2 headers attached
func (c *Client) authedRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	if c.creds == nil {
		return nil, fmt.Errorf("endpoint %s requires credentials", path)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return nil, err
	}

	headers, err := c.l2Headers(method, path, string(body))
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// do executes a request and decodes the JSON response into out
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
