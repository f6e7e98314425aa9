package clob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// l2Headers computes the level-2 authentication headers for a request.
// The signature is an HMAC-SHA256 over timestamp+method+path+body using
// the base64url-decoded API secret, itself encoded base64url.
func (c *Client) l2Headers(method, path, body string) (http.Header, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	secret, err := base64.URLEncoding.DecodeString(c.creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ts + method + path + body))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	h := http.Header{}
	h.Set("POLY_ADDRESS", c.creds.Address)
	h.Set("POLY_SIGNATURE", sig)
	h.Set("POLY_TIMESTAMP", ts)
	h.Set("POLY_API_KEY", c.creds.APIKey)
	h.Set("POLY_PASSPHRASE", c.creds.Passphrase)
	return h, nil
}
