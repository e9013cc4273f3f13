// Package httpapi exposes the inbound webhooks of the fulfillment daemon.
//
// The event source posts new orders to /events/orders and buyer chat messages
// to /events/messages. Both are acknowledged with 202 before any marketplace
// work starts. /healthz and /stats serve probes and operators.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"github.com/velmie/fulfill"
)

// OrderQueue admits orders for fulfillment.
type OrderQueue interface {
	Enqueue(order fulfill.Order) (fulfill.Job, error)
	Active() int
	Queued() int
}

// MessageHandler reacts to buyer chat messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg fulfill.ChatMessage) error
}

// ProfitReporter reports cumulative profit.
type ProfitReporter interface {
	TotalProfit(ctx context.Context) (decimal.Decimal, error)
}

// Server routes webhook events into the pipeline.
type Server struct {
	queue    OrderQueue
	messages MessageHandler
	profit   ProfitReporter
	cfg      Config
	limiters *limiterSet
	inflight sync.WaitGroup
}

// NewServer constructs a Server.
func NewServer(queue OrderQueue, messages MessageHandler, profit ProfitReporter, opts ...Option) *Server {
	if queue == nil {
		panic("httpapi: nil order queue")
	}
	if messages == nil {
		panic("httpapi: nil message handler")
	}
	if profit == nil {
		panic("httpapi: nil profit reporter")
	}

	var cfg Config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg = cfg.withDefaults()

	return &Server{
		queue:    queue,
		messages: messages,
		profit:   profit,
		cfg:      cfg,
		limiters: newLimiterSet(cfg.RateLimit, cfg.RateBurst, cfg.LimiterIdle),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", s.handleStats)

	r.Route("/events", func(r chi.Router) {
		r.Use(s.limiters.middleware)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
				next.ServeHTTP(w, r)
			})
		})
		r.Post("/orders", s.handleOrder)
		r.Post("/messages", s.handleMessage)
	})

	return r
}

// Wait blocks until accepted chat messages finish processing or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type orderEvent struct {
	OrderID     string          `json:"order_id"`
	Buyer       string          `json:"buyer"`
	ChatID      string          `json:"chat_id"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type acceptedResponse struct {
	JobID string `json:"job_id,omitempty"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var event orderEvent
	if !s.decode(w, r, orderEventLoader, &event) {
		return
	}

	job, err := s.queue.Enqueue(fulfill.Order{
		ID:          event.OrderID,
		Buyer:       event.Buyer,
		ChatID:      event.ChatID,
		Quantity:    event.Quantity,
		Description: event.Description,
		Amount:      event.Amount,
	})
	switch {
	case errors.Is(err, fulfill.ErrSchedulerClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())

		return
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())

		return
	}

	writeJSON(w, http.StatusAccepted, acceptedResponse{JobID: job.ID.String()})
}

type messageEvent struct {
	Sender string `json:"sender"`
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var event messageEvent
	if !s.decode(w, r, messageEventLoader, &event) {
		return
	}

	msg := fulfill.ChatMessage{Sender: event.Sender, ChatID: event.ChatID, Text: event.Text}
	ctx := context.WithoutCancel(r.Context())

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.cfg.Logger.Error("httpapi message handler panic", "sender", msg.Sender, "panic", rec, "stack", string(debug.Stack()))
			}
		}()
		if err := s.messages.HandleMessage(ctx, msg); err != nil {
			s.cfg.Logger.Warn("httpapi message handling failed", "sender", msg.Sender, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, acceptedResponse{})
}

type statsResponse struct {
	Active      int    `json:"active"`
	Queued      int    `json:"queued"`
	TotalProfit string `json:"total_profit"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.profit.TotalProfit(r.Context())
	if err != nil {
		s.cfg.Logger.Error("httpapi profit lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "profit unavailable")

		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Active:      s.queue.Active(),
		Queued:      s.queue.Queued(),
		TotalProfit: total.StringFixed(2),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema gojsonschema.JSONLoader, out any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")

			return false
		}
		writeError(w, http.StatusBadRequest, "read body failed")

		return false
	}
	if err := validateSchema(schema, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")

		return false
	}

	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
