package clob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/krobus00/clob-gateway/internal/entity"
)

const (
	headerAddress    = "POLY_ADDRESS"
	headerSignature  = "POLY_SIGNATURE"
	headerTimestamp  = "POLY_TIMESTAMP"
	headerNonce      = "POLY_NONCE"
	headerAPIKey     = "POLY_API_KEY"
	headerPassphrase = "POLY_PASSPHRASE"

	authAPIKeyPath = "/auth/api-key"
	orderPath      = "/order"
)

var (
	ErrSigningNotConfigured = errors.New("venue signing key or funder is not configured")
	ErrCredentialsNotSet    = errors.New("venue api credentials are not set")
)

type Config struct {
	ClobHost      string
	GammaHost     string
	DataHost      string
	ChainID       int
	SignatureType int
	SigningKey    string
	Funder        string
}

// Client talks to the venue REST surface: credential issuance under the
// signing key, signed order entry under the issued triplet, and the
// unauthenticated market/position passthroughs.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu    sync.RWMutex
	creds entity.Credentials
}

func NewClient(cfg Config) *Client {
	cfg.ClobHost = strings.TrimRight(strings.TrimSpace(cfg.ClobHost), "/")
	cfg.GammaHost = strings.TrimRight(strings.TrimSpace(cfg.GammaHost), "/")
	cfg.DataHost = strings.TrimRight(strings.TrimSpace(cfg.DataHost), "/")
	cfg.SigningKey = strings.TrimSpace(cfg.SigningKey)
	cfg.Funder = strings.TrimSpace(cfg.Funder)

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetAPICreds installs the triplet used for authenticated calls. CreateAPIKey
// installs its own result, so callers normally never need this directly.
func (c *Client) SetAPICreds(creds entity.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.creds = creds
}

func (c *Client) apiCreds() (entity.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.creds.IsZero() {
		return entity.Credentials{}, ErrCredentialsNotSet
	}

	return c.creds, nil
}

func (c *Client) CreateAPIKey(ctx context.Context) (entity.Credentials, error) {
	body, err := c.doL1(ctx, http.MethodPost, c.cfg.ClobHost+authAPIKeyPath)
	if err != nil {
		return entity.Credentials{}, err
	}

	var resp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return entity.Credentials{}, fmt.Errorf("decode api key response: %w", err)
	}

	creds := entity.Credentials{
		Key:        resp.APIKey,
		Secret:     resp.Secret,
		Passphrase: resp.Passphrase,
	}
	c.SetAPICreds(creds)

	return creds, nil
}

func (c *Client) DeleteAPIKey(ctx context.Context) error {
	_, err := c.doL1(ctx, http.MethodDelete, c.cfg.ClobHost+authAPIKeyPath)
	return err
}

type orderPayload struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	TokenID       string `json:"tokenId"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	Side          string `json:"side"`
	Expiration    int64  `json:"expiration"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

func (c *Client) PlaceOrder(ctx context.Context, order entity.OrderRequest) (json.RawMessage, error) {
	side, err := entity.ParseOrderSide(string(order.Side))
	if err != nil {
		return nil, err
	}

	if c.cfg.SigningKey == "" || c.cfg.Funder == "" {
		return nil, ErrSigningNotConfigured
	}

	var expiration int64
	if order.Expiration != nil {
		expiration = *order.Expiration
	}

	salt := uuid.NewString()
	payload := orderPayload{
		Salt:          salt,
		Maker:         c.cfg.Funder,
		TokenID:       order.TokenID,
		Price:         order.Price.String(),
		Size:          order.Size.String(),
		Side:          string(side),
		Expiration:    expiration,
		SignatureType: c.cfg.SignatureType,
		Signature: l1Signature(c.cfg.SigningKey,
			salt,
			c.cfg.Funder,
			order.TokenID,
			order.Price.String(),
			order.Size.String(),
			string(side),
			strconv.FormatInt(expiration, 10),
		),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode order payload: %w", err)
	}

	return c.doL2(ctx, http.MethodPost, orderPath, body)
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return nil, fmt.Errorf("encode cancel payload: %w", err)
	}

	return c.doL2(ctx, http.MethodDelete, orderPath, body)
}

func (c *Client) Markets(ctx context.Context, query entity.MarketsQuery) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("offset", strconv.Itoa(query.Offset))
	params.Set("active", strconv.FormatBool(query.Active))
	params.Set("archived", strconv.FormatBool(query.Archived))
	params.Set("closed", strconv.FormatBool(query.Closed))
	params.Set("order", "volume24hr")
	params.Set("ascending", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GammaHost+"/events?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) Positions(ctx context.Context) (json.RawMessage, error) {
	if c.cfg.Funder == "" {
		return nil, ErrSigningNotConfigured
	}

	params := url.Values{}
	params.Set("user", c.cfg.Funder)
	params.Set("sortBy", "CURRENT")
	params.Set("sortDirection", "DESC")
	params.Set("sizeThreshold", ".1")
	params.Set("limit", "50")
	params.Set("offset", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.DataHost+"/positions?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

// doL1 issues a request authenticated by the signing key, used only for
// credential issuance and revocation.
func (c *Client) doL1(ctx context.Context, method, rawURL string) (json.RawMessage, error) {
	if c.cfg.SigningKey == "" || c.cfg.Funder == "" {
		return nil, ErrSigningNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := "0"

	req.Header.Set(headerAddress, c.cfg.Funder)
	req.Header.Set(headerTimestamp, timestamp)
	req.Header.Set(headerNonce, nonce)
	req.Header.Set(headerSignature, l1Signature(c.cfg.SigningKey, strconv.Itoa(c.cfg.ChainID), timestamp, nonce))

	return c.do(req)
}

// doL2 issues a request authenticated by the issued api key triplet.
func (c *Client) doL2(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	creds, err := c.apiCreds()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ClobHost+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature, err := l2Signature(creds.Secret, timestamp, method, path, string(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAddress, c.cfg.Funder)
	req.Header.Set(headerTimestamp, timestamp)
	req.Header.Set(headerAPIKey, creds.Key)
	req.Header.Set(headerPassphrase, creds.Passphrase)
	req.Header.Set(headerSignature, signature)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logrus.WithFields(logrus.Fields{
			"method": req.Method,
			"url":    req.URL.String(),
			"status": resp.StatusCode,
		}).Warn("venue request failed")

		return nil, fmt.Errorf("venue responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
