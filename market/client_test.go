package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/velmie/fulfill"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("secret", WithBaseURL(server.URL), WithRateLimit(0, 1), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("  "); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
}

func TestSearchBuildsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/telegram" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		q := r.URL.Query()
		if q.Get("order_by") != "price_to_up" || q.Get("pmin") != "50" || q.Get("pmax") != "150.5" {
			t.Errorf("unexpected price params %v", q)
		}
		if got := q["origin[]"]; len(got) != 2 || got[0] != "personal" || got[1] != "autoreg" {
			t.Errorf("unexpected origins %v", got)
		}
		if q.Get("country[]") != "US" || q.Get("spam") != "no" || q.Get("password") != "no" {
			t.Errorf("unexpected filters %v", q)
		}
		_, _ = w.Write([]byte(`{"items":[{"item_id":9,"price":80},{"item_id":10,"price":"60.25"}]}`))
	})

	candidates, err := client.Search(context.Background(), fulfill.SearchQuery{
		Region:   "US",
		MinPrice: decimal.NewFromInt(50),
		MaxPrice: decimal.RequireFromString("150.5"),
		Origins:  []string{"personal", "autoreg"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ItemID != 9 || !candidates[0].Price.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected first candidate %+v", candidates[0])
	}
	if candidates[1].ItemID != 10 || !candidates[1].Price.Equal(decimal.RequireFromString("60.25")) {
		t.Fatalf("unexpected second candidate %+v", candidates[1])
	}
}

func TestSearchEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	candidates, err := client.Search(context.Background(), fulfill.SearchQuery{Region: "US"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v", candidates)
	}
}

func TestBuyDecodesItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/9/fast-buy" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"item":{"item_id":9,"price":80,"telegram_phone":"15550001","telegram_id":424242,` +
			`"loginData":{"login":"user","password":"pw"}}}`))
	})

	item, err := client.Buy(context.Background(), 9)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if item.ItemID != 9 || item.Phone != "15550001" || item.ExternalID != "424242" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Login != "user" || item.Password != "pw" || !item.Cost.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected credentials %+v", item)
	}
}

func TestBuyRejectionCarriesReasons(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["item_already_sold"]}`))
	})

	_, err := client.Buy(context.Background(), 9)
	var marketErr *fulfill.MarketError
	if !errors.As(err, &marketErr) {
		t.Fatalf("expected MarketError, got %v", err)
	}
	if marketErr.Status != http.StatusForbidden || !marketErr.HasReason("item_already_sold") {
		t.Fatalf("unexpected error %+v", marketErr)
	}
	if fulfill.FailureReason(err) != "item_already_sold" {
		t.Fatalf("unexpected reason %q", fulfill.FailureReason(err))
	}
}

func TestErrorsInSuccessfulResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":["insufficient_funds"]}`))
	})

	_, err := client.Buy(context.Background(), 9)
	var marketErr *fulfill.MarketError
	if !errors.As(err, &marketErr) || !marketErr.HasReason("insufficient_funds") {
		t.Fatalf("expected insufficient_funds rejection, got %v", err)
	}
}

func TestNonJSONFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	})

	_, err := client.LoginCodes(context.Background(), 9)
	var marketErr *fulfill.MarketError
	if !errors.As(err, &marketErr) || marketErr.Status != http.StatusBadGateway || len(marketErr.Reasons) != 0 {
		t.Fatalf("expected bare status error, got %v", err)
	}
}

func TestBuyWithoutItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := client.Buy(context.Background(), 9); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestLoginCodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/9/telegram-login-code" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"codes":[{"code":"12345","date":1700000000},{"code":"11111","date":1690000000}]}`))
	})

	codes, err := client.LoginCodes(context.Background(), 9)
	if err != nil {
		t.Fatalf("codes: %v", err)
	}
	if len(codes) != 2 || codes[0].Code != "12345" {
		t.Fatalf("unexpected codes %+v", codes)
	}
	if codes[0].IssuedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected issued at %v", codes[0].IssuedAt)
	}
}

func TestRetryRequestIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["retry_request"]}`))
	})

	_, err := client.LoginCodes(context.Background(), 9)
	var marketErr *fulfill.MarketError
	if !errors.As(err, &marketErr) || !marketErr.HasReason(fulfill.RetryRequestCode) {
		t.Fatalf("expected retry_request, got %v", err)
	}
}

func TestFetchCodeRetriesGatewayFailures(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusTooManyRequests} {
		var calls atomic.Int32
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "<html>busy</html>", status)
				return
			}
			_, _ = w.Write([]byte(`{"codes":[{"code":"12345","date":1700000000}]}`))
		})
		acquirer := fulfill.NewAcquirer(client, fulfill.NotifierFunc(func(context.Context, fulfill.Alert) error {
			return nil
		}), fulfill.AcquirerConfig{
			Sleeper: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		})

		code, err := acquirer.FetchCode(context.Background(), 9)
		if err != nil {
			t.Fatalf("status %d: fetch code: %v", status, err)
		}
		if code != "12345" {
			t.Fatalf("status %d: expected code 12345, got %q", status, code)
		}
		if got := calls.Load(); got != 2 {
			t.Fatalf("status %d: expected 2 calls, got %d", status, got)
		}
	}
}

func TestCanceledContextSkipsRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Search(ctx, fulfill.SearchQuery{}); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if called {
		t.Fatalf("request must not reach the server")
	}
}
