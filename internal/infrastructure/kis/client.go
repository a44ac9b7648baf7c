// Package kis implements the Korea Investment & Securities overseas stock
// API client. The API is rate limited per app key and hands out OAuth tokens
// that stay valid for 24 hours, so the token is cached on disk between runs.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"main/internal/config"

	"github.com/sirupsen/logrus"
)

const tokenTimeLayout = "2006-01-02 15:04:05"

// Client talks to the KIS REST API. Safe for concurrent use; calls are
// serialized by the rate limiter anyway.
type Client struct {
	cfg    config.KISConfig
	http   *http.Client
	logger *logrus.Entry

	mu           sync.Mutex
	accessToken  string
	tokenExpired time.Time
	lastCall     time.Time
}

func NewClient(cfg config.KISConfig, logger *logrus.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.WithField("component", "kis_client"),
	}
	c.loadTokenCache()
	return c
}

type tokenCache struct {
	AccessToken  string `json:"access_token"`
	TokenExpired string `json:"token_expired"`
}

func (c *Client) loadTokenCache() {
	data, err := os.ReadFile(c.cfg.TokenCachePath)
	if err != nil {
		return
	}
	var cache tokenCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return
	}
	c.accessToken = cache.AccessToken
	if cache.TokenExpired != "" {
		if expired, err := time.ParseInLocation(tokenTimeLayout, cache.TokenExpired, time.Local); err == nil {
			c.tokenExpired = expired
		}
	}
}

// saveTokenCache is best effort: a read-only filesystem only costs an extra
// token request on the next run.
func (c *Client) saveTokenCache() {
	cache := tokenCache{AccessToken: c.accessToken}
	if !c.tokenExpired.IsZero() {
		cache.TokenExpired = c.tokenExpired.Format(tokenTimeLayout)
	}
	data, err := json.Marshal(cache)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cfg.TokenCachePath, data, 0o600); err != nil {
		c.logger.WithError(err).Warn("failed to cache access token")
	}
}

// waitForRateLimit keeps the configured minimum interval between API calls.
// Must be called with the mutex held.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	wait := c.cfg.RateInterval - time.Since(c.lastCall)
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastCall = time.Now()
	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenExpired string `json:"access_token_token_expired"`
}

// accessTokenLocked returns a valid token, requesting a new one when the
// cached one expired. The token endpoint rejects repeat requests within a
// minute, so a 403 with a cached token in hand falls back to the cache.
func (c *Client) accessTokenLocked(ctx context.Context) (string, error) {
	if c.accessToken != "" && !c.tokenExpired.IsZero() && time.Now().Before(c.tokenExpired) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", "application/json; charset=utf-8")

	if err := c.waitForRateLimit(ctx); err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden && c.accessToken != "" {
		return c.accessToken, nil
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}

	c.accessToken = token.AccessToken
	c.tokenExpired = time.Time{}
	if token.TokenExpired != "" {
		if expired, err := time.ParseInLocation(tokenTimeLayout, token.TokenExpired, time.Local); err == nil {
			c.tokenExpired = expired
		}
	}
	c.saveTokenCache()
	return c.accessToken, nil
}

// apiEnvelope is the common KIS response wrapper. rt_cd "0" means success.
type apiEnvelope struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`

	CtxAreaFK200 string `json:"ctx_area_fk200"`
	CtxAreaNK200 string `json:"ctx_area_nk200"`

	Output  json.RawMessage `json:"output"`
	Output1 json.RawMessage `json:"output1"`
	Output2 json.RawMessage `json:"output2"`
	Output3 json.RawMessage `json:"output3"`
}

// get performs one rate-limited GET under the given transaction id and
// returns the decoded envelope plus the continuation marker header.
func (c *Client) get(ctx context.Context, path, trID string, params url.Values) (*apiEnvelope, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.accessTokenLocked(ctx)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("content-type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)

	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("%s failed: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("decode %s response: %w", path, err)
	}
	if envelope.RtCd != "0" {
		return nil, "", fmt.Errorf("%s api error: %s - %s", path, envelope.MsgCd, envelope.Msg1)
	}
	return &envelope, resp.Header.Get("tr_cont"), nil
}

// hasMorePages reports whether the continuation header asks for another page.
// D, E and empty all mean the last page.
func hasMorePages(trCont string) bool {
	switch trCont {
	case "", "D", "E":
		return false
	default:
		return true
	}
}
