package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/velmie/fulfill"
	"github.com/velmie/fulfill/chat"
	"github.com/velmie/fulfill/httpapi"
	"github.com/velmie/fulfill/market"
	"github.com/velmie/fulfill/memstore"
	"github.com/velmie/fulfill/otelmetrics"
)

const (
	storeMySQL        = "mysql"
	storeMemory       = "memory"
	readHeaderTimeout = 10 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the fulfillment scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("store", storeMySQL, "Store backend: mysql or memory")
	flags.String("http-addr", ":8080", "Webhook listen address")
	flags.String("market-token", "", "Marketplace bearer token")
	flags.String("market-url", market.DefaultBaseURL, "Marketplace API base URL")
	flags.String("chat-url", "", "Chat gateway base URL")
	flags.String("chat-token", "", "Chat gateway bearer token")
	flags.Int("max-active", fulfill.DefaultMaxActive, "Max concurrently running orders")
	bindFlags(v, flags, map[string]string{
		"store":                "store",
		"http.addr":            "http-addr",
		"market.token":         "market-token",
		"market.base_url":      "market-url",
		"chat.base_url":        "chat-url",
		"chat.token":           "chat-token",
		"scheduler.max_active": "max-active",
	})

	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			newZap,
			newLogger,
			provideStores,
			provideMetrics,
			provideMarket,
			provideChat,
			provideAcquirer,
			provideRecorder,
			provideCompensator,
			provideWorker,
			provideScheduler,
			provideCodeHandler,
			provideAPI,
		),
		fx.Invoke(runScheduler, runHTTP),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	<-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Scheduler.DrainTimeout+app.StopTimeout())
	defer cancel()

	return app.Stop(stopCtx)
}

type stores struct {
	fx.Out

	Deliveries fulfill.DeliveryStore
	Settings   fulfill.SettingsStore
}

func provideStores(lc fx.Lifecycle, cfg Config, logger fulfill.Logger) (stores, error) {
	switch cfg.Store {
	case storeMemory:
		logger.Warn("fulfilld using in-memory store, records are lost on restart")
		store := memstore.New()

		return stores{Deliveries: store, Settings: store}, nil
	case storeMySQL, "":
		db, store, err := openMySQL(context.Background(), cfg.MySQL, logger)
		if err != nil {
			return stores{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return db.Close()
			},
		})

		return stores{Deliveries: store, Settings: store}, nil
	default:
		return stores{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func provideMetrics() (fulfill.Metrics, error) {
	metrics, err := otelmetrics.New(otelmetrics.Config{ServiceName: "fulfilld"}, nil)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return metrics, nil
}

func provideMarket(cfg Config, logger fulfill.Logger) (*market.Client, error) {
	return market.NewClient(cfg.Market.Token,
		market.WithBaseURL(cfg.Market.BaseURL),
		market.WithTimeout(cfg.Market.Timeout),
		market.WithRateLimit(cfg.Market.RateLimit, cfg.Market.RateBurst),
		market.WithLogger(logger),
	)
}

func provideChat(cfg Config, settings fulfill.SettingsStore, logger fulfill.Logger) (*chat.Client, error) {
	return chat.NewClient(cfg.Chat.BaseURL, settings,
		chat.WithToken(cfg.Chat.Token),
		chat.WithTimeout(cfg.Chat.Timeout),
		chat.WithLogger(logger),
	)
}

func provideAcquirer(cfg Config, client *market.Client, gateway *chat.Client, logger fulfill.Logger, metrics fulfill.Metrics) *fulfill.Acquirer {
	acq := fulfill.DefaultAcquirerConfig()
	acq.PaceDelay = cfg.Acquire.PaceDelay
	acq.CodeAttempts = cfg.Acquire.CodeAttempts
	acq.CodeRetryDelay = cfg.Acquire.CodeRetryDelay
	acq.Logger = logger
	acq.Metrics = metrics

	return fulfill.NewAcquirer(client, gateway, acq)
}

func provideRecorder(store fulfill.DeliveryStore, logger fulfill.Logger) *fulfill.Recorder {
	return fulfill.NewRecorder(store, fulfill.WithRecorderLogger(logger))
}

func provideCompensator(gateway *chat.Client, logger fulfill.Logger) *fulfill.Compensator {
	return fulfill.NewCompensator(gateway, gateway, logger)
}

func provideWorker(
	settings fulfill.SettingsStore,
	acquirer *fulfill.Acquirer,
	recorder *fulfill.Recorder,
	compensator *fulfill.Compensator,
	gateway *chat.Client,
	logger fulfill.Logger,
) *fulfill.Worker {
	return fulfill.NewWorker(fulfill.WorkerDeps{
		Settings:    settings,
		Acquirer:    acquirer,
		Recorder:    recorder,
		Compensator: compensator,
		Messenger:   gateway,
		Notifier:    gateway,
		Logger:      logger,
	})
}

func provideScheduler(
	cfg Config,
	worker *fulfill.Worker,
	gateway *chat.Client,
	logger fulfill.Logger,
	metrics fulfill.Metrics,
) *fulfill.Scheduler {
	return fulfill.NewScheduler(worker,
		fulfill.WithMaxActive(cfg.Scheduler.MaxActive),
		fulfill.WithPoolSize(cfg.Scheduler.PoolSize),
		fulfill.WithPollInterval(cfg.Scheduler.PollInterval),
		fulfill.WithDrainTimeout(cfg.Scheduler.DrainTimeout),
		fulfill.WithLogger(logger),
		fulfill.WithMetrics(metrics),
		fulfill.WithErrorHandler(droppedJobAlerter(gateway, logger)),
	)
}

// droppedJobAlerter asks operators to handle orders the scheduler never started.
func droppedJobAlerter(notifier fulfill.Notifier, logger fulfill.Logger) fulfill.ErrorHandler {
	return func(ctx context.Context, job fulfill.Job, err error) {
		if !errors.Is(err, fulfill.ErrJobDropped) {
			return
		}
		alert := fulfill.Alert{
			Text:    fmt.Sprintf("Order %s from %s was not processed before shutdown. Please fulfill it manually.", job.Order.ID, job.Order.Buyer),
			OrderID: job.Order.ID,
		}
		if notifyErr := notifier.NotifyOperators(ctx, alert); notifyErr != nil {
			logger.Error("fulfill dropped job alert failed", "order_id", job.Order.ID, "err", notifyErr)
		}
	}
}

func provideCodeHandler(
	settings fulfill.SettingsStore,
	recorder *fulfill.Recorder,
	acquirer *fulfill.Acquirer,
	gateway *chat.Client,
	logger fulfill.Logger,
) *fulfill.CodeHandler {
	return fulfill.NewCodeHandler(fulfill.CodeHandlerDeps{
		Settings:  settings,
		Recorder:  recorder,
		Fetcher:   acquirer,
		History:   gateway,
		Messenger: gateway,
		Notifier:  gateway,
		Logger:    logger,
	})
}

func provideAPI(cfg Config, scheduler *fulfill.Scheduler, handler *fulfill.CodeHandler, recorder *fulfill.Recorder, logger fulfill.Logger) *httpapi.Server {
	return httpapi.NewServer(scheduler, handler, recorder,
		httpapi.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
		httpapi.WithLogger(logger),
	)
}

func runScheduler(lc fx.Lifecycle, scheduler *fulfill.Scheduler, log *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				done <- scheduler.Run(runCtx)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case err := <-done:
				if err != nil {
					log.Error("scheduler stopped with error", zap.Error(err))
				}

				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func runHTTP(lc fx.Lifecycle, cfg Config, api *httpapi.Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			log.Info("webhook server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("webhook server failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}

			return api.Wait(ctx)
		},
	})
}
