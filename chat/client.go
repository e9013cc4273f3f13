package chat

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

	"github.com/velmie/fulfill"
)

const maxErrorBody = 512

// Client is a chat gateway client. It implements fulfill.Messenger,
// fulfill.Notifier, fulfill.Refunder and fulfill.OrderHistory.
type Client struct {
	baseURL  *url.URL
	settings fulfill.SettingsStore
	cfg      Config
}

var (
	_ fulfill.Messenger    = (*Client)(nil)
	_ fulfill.Notifier     = (*Client)(nil)
	_ fulfill.Refunder     = (*Client)(nil)
	_ fulfill.OrderHistory = (*Client)(nil)
)

// NewClient constructs a Client. Operator recipients and order links are
// read from settings on every alert.
func NewClient(baseURL string, settings fulfill.SettingsStore, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	if settings == nil {
		return nil, ErrSettingsRequired
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("chat: invalid base url: %w", err)
	}

	var cfg Config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Client{baseURL: parsed, settings: settings, cfg: cfg.withDefaults()}, nil
}

type messageRequest struct {
	ChatID string `json:"chat_id"`
	Buyer  string `json:"buyer"`
	Text   string `json:"text"`
}

// SendMessage posts msg to the buyer's chat.
func (c *Client) SendMessage(ctx context.Context, msg fulfill.Message) error {
	return c.do(ctx, http.MethodPost, "/messages", messageRequest{ChatID: msg.ChatID, Buyer: msg.Buyer, Text: msg.Text}, nil)
}

type operatorRequest struct {
	Operators []string `json:"operators"`
	Text      string   `json:"text"`
	Link      string   `json:"link,omitempty"`
}

// NotifyOperators sends alert to every operator listed in settings.
// An empty operator list is logged and skipped.
func (c *Client) NotifyOperators(ctx context.Context, alert fulfill.Alert) error {
	settings, err := c.settings.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("chat: load settings: %w", err)
	}
	if len(settings.Operators) == 0 {
		c.cfg.Logger.Warn("chat no operators configured, alert dropped", "order_id", alert.OrderID)

		return nil
	}

	req := operatorRequest{Operators: settings.Operators, Text: alert.Text}
	if alert.OrderID != "" {
		req.Link = settings.OrderLink(alert.OrderID)
	}

	return c.do(ctx, http.MethodPost, "/operators/messages", req, nil)
}

// Refund asks the gateway to refund orderID. A conflict means the order was
// already refunded and is reported as success.
func (c *Client) Refund(ctx context.Context, orderID string) error {
	err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/refund", nil, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusConflict {
		c.cfg.Logger.Info("chat refund already applied", "order_id", orderID)

		return nil
	}

	return err
}

type historyResponse struct {
	Orders []struct {
		OrderID string `json:"order_id"`
		Phone   string `json:"phone"`
		ItemID  int64  `json:"item_id"`
	} `json:"orders"`
}

// DeliveredOrders lists the buyer's past orders that carry a delivered phone.
func (c *Client) DeliveredOrders(ctx context.Context, buyer string) ([]fulfill.HistoricOrder, error) {
	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, "/buyers/"+url.PathEscape(buyer)+"/orders", nil, &resp); err != nil {
		return nil, err
	}

	orders := make([]fulfill.HistoricOrder, 0, len(resp.Orders))
	for _, order := range resp.Orders {
		if order.Phone == "" {
			continue
		}
		orders = append(orders, fulfill.HistoricOrder{OrderID: order.OrderID, Phone: order.Phone, ItemID: order.ItemID})
	}

	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("chat: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chat: decode %s %s: %w", method, path, err)
	}

	return nil
}
