package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/velmie/fulfill"
)

const maxBodyBytes = 1 << 20

// Client talks to the marketplace API.
type Client struct {
	baseURL *url.URL
	cfg     Config
	limiter *rate.Limiter
}

var _ fulfill.Marketplace = (*Client)(nil)

// NewClient constructs a Client authenticated with token.
func NewClient(token string, opts ...Option) (*Client, error) {
	cfg := Config{Token: token, RequestsPerSecond: DefaultRequestsPerSecond}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg = cfg.withDefaults()

	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrTokenRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("market: invalid base url: %w", err)
	}

	return &Client{baseURL: parsed, cfg: cfg, limiter: cfg.limiter()}, nil
}

type searchResponse struct {
	Items []struct {
		ItemID int64           `json:"item_id"`
		Price  decimal.Decimal `json:"price"`
	} `json:"items"`
}

// Search lists telegram accounts for one country within the price band,
// cheapest first as ordered by the marketplace.
func (c *Client) Search(ctx context.Context, query fulfill.SearchQuery) ([]fulfill.Candidate, error) {
	params := url.Values{}
	params.Set("order_by", "price_to_up")
	params.Set("pmin", query.MinPrice.String())
	params.Set("pmax", query.MaxPrice.String())
	for _, origin := range query.Origins {
		params.Add("origin[]", origin)
	}
	params.Set("spam", "no")
	params.Set("allow_geo_spamblock", "true")
	params.Set("password", "no")
	if query.Region != "" {
		params.Add("country[]", query.Region)
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/telegram", params, &resp); err != nil {
		return nil, err
	}

	candidates := make([]fulfill.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		candidates = append(candidates, fulfill.Candidate{ItemID: item.ItemID, Price: item.Price})
	}
	c.cfg.Logger.Debug("market search", "region", query.Region, "found", len(candidates))

	return candidates, nil
}

type buyResponse struct {
	Item *struct {
		ItemID        int64           `json:"item_id"`
		Price         decimal.Decimal `json:"price"`
		TelegramPhone string          `json:"telegram_phone"`
		TelegramID    json.Number     `json:"telegram_id"`
		LoginData     struct {
			Login    string `json:"login"`
			Password string `json:"password"`
		} `json:"loginData"`
	} `json:"item"`
}

// Buy purchases itemID through fast-buy.
func (c *Client) Buy(ctx context.Context, itemID int64) (fulfill.DeliveredItem, error) {
	var resp buyResponse
	if err := c.do(ctx, http.MethodPost, itemPath(itemID, "fast-buy"), nil, &resp); err != nil {
		return fulfill.DeliveredItem{}, err
	}
	if resp.Item == nil {
		return fulfill.DeliveredItem{}, fmt.Errorf("%w: fast-buy without item", ErrMalformedResponse)
	}

	item := fulfill.DeliveredItem{
		ItemID:     resp.Item.ItemID,
		Login:      resp.Item.LoginData.Login,
		Password:   resp.Item.LoginData.Password,
		Phone:      resp.Item.TelegramPhone,
		ExternalID: resp.Item.TelegramID.String(),
		Cost:       resp.Item.Price,
	}
	if item.ItemID == 0 {
		item.ItemID = itemID
	}

	return item, nil
}

type codesResponse struct {
	Codes []struct {
		Code string `json:"code"`
		Date int64  `json:"date"`
	} `json:"codes"`
}

// LoginCodes returns the login codes issued for itemID, newest first.
func (c *Client) LoginCodes(ctx context.Context, itemID int64) ([]fulfill.LoginCode, error) {
	var resp codesResponse
	if err := c.do(ctx, http.MethodGet, itemPath(itemID, "telegram-login-code"), nil, &resp); err != nil {
		return nil, err
	}

	codes := make([]fulfill.LoginCode, 0, len(resp.Codes))
	for _, code := range resp.Codes {
		entry := fulfill.LoginCode{Code: code.Code}
		if code.Date > 0 {
			entry.IssuedAt = time.Unix(code.Date, 0).UTC()
		}
		codes = append(codes, entry)
	}

	return codes, nil
}

func itemPath(itemID int64, action string) string {
	return "/" + strconv.FormatInt(itemID, 10) + "/" + action
}

type errorEnvelope struct {
	Errors []string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("market: read %s %s: %w", method, path, err)
	}
	c.cfg.Logger.Debug("market request", "method", method, "path", path, "status", resp.StatusCode)

	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(envelope.Errors) > 0 {
		return &fulfill.MarketError{Status: resp.StatusCode, Reasons: envelope.Errors}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, method, path, err)
	}

	return nil
}
