package clob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyberWeaverX/poly-survivor/pkg/config"
)

func testCredentials() *config.Credentials {
	return &config.Credentials{
		Address:    "0x1111111111111111111111111111111111111111",
		APIKey:     "key-1",
		APISecret:  base64.URLEncoding.EncodeToString([]byte("super-secret")),
		Passphrase: "phrase",
	}
}

func TestOrderBookDecoding(t *testing.T) {
	payload := `{
		"market": "0xcond",
		"asset_id": "111",
		"timestamp": "1717200000000",
		"bids": [
			{"price": "0.10", "size": "200"},
			{"price": "0.45", "size": "60"}
		],
		"asks": [
			{"price": "0.95", "size": "150"},
			{"price": "0.55", "size": "80"}
		]
	}`

	var book OrderBook
	require.NoError(t, json.Unmarshal([]byte(payload), &book))

	// Sides arrive worst to best; the best quote is the last level
	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, "0.45", bid.String())

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, "0.55", ask.String())
}

func TestOrderBookEmptySides(t *testing.T) {
	var book OrderBook
	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)
}

func TestGetOrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "111", r.URL.Query().Get("token_id"))
		w.Write([]byte(`{"asset_id": "111", "bids": [{"price": "0.40", "size": "10"}], "asks": []}`))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, nil)
	book, err := client.GetOrderBook(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, "111", book.AssetID)
	require.Len(t, book.Bids, 1)
}

func TestL2Headers(t *testing.T) {
	client := New("https://clob.example.com", testCredentials(), nil)

	headers, err := client.l2Headers(http.MethodPost, "/order", `{"x":1}`)
	require.NoError(t, err)

	assert.Equal(t, "0x1111111111111111111111111111111111111111", headers.Get("POLY_ADDRESS"))
	assert.Equal(t, "key-1", headers.Get("POLY_API_KEY"))
	assert.Equal(t, "phrase", headers.Get("POLY_PASSPHRASE"))
	assert.NotEmpty(t, headers.Get("POLY_TIMESTAMP"))

	// Recompute the signature with the same timestamp
	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write([]byte(headers.Get("POLY_TIMESTAMP") + "POST/order" + `{"x":1}`))
	want := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, headers.Get("POLY_SIGNATURE"))
}

func TestAuthedEndpointsRequireCredentials(t *testing.T) {
	client := New("https://clob.example.com", nil, nil)

	_, err := client.GetCollateralBalance(context.Background())
	assert.Error(t, err)

	err = client.CancelOrder(context.Background(), "ord-1")
	assert.Error(t, err)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/order/ord-7", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		w.Write([]byte(`{"id": "ord-7", "status": "MATCHED", "size_matched": "5"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, testCredentials(), nil)
	order, err := client.GetOrder(context.Background(), "ord-7")
	require.NoError(t, err)
	assert.Equal(t, "MATCHED", order.Status)
	assert.Equal(t, "5", order.SizeMatched)
}

func TestGetCollateralBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balance-allowance", r.URL.Path)
		assert.Equal(t, "COLLATERAL", r.URL.Query().Get("asset_type"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		w.Write([]byte(`{"balance": "123500000"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, testCredentials(), nil)
	balance, err := client.GetCollateralBalance(context.Background())
	require.NoError(t, err)

	// Amounts come back scaled by 1e6
	assert.Equal(t, "123.5", balance.String())
}

func TestPostOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "errorMsg": "not enough balance"}`))
	}))
	defer srv.Close()

	signer, err := NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 137)
	require.NoError(t, err)

	signed, err := signer.SignOrder("111", SideBuy, mustDecimal("0.50"), mustDecimal("10"))
	require.NoError(t, err)

	client := New(srv.URL, testCredentials(), signer)
	_, err = client.PostOrder(context.Background(), signed, OrderTypeGTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough balance")
}
