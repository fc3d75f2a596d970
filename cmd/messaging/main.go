package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/SoSerious194/ptflow-messaging/internal/api"
	"github.com/SoSerious194/ptflow-messaging/internal/audience"
	"github.com/SoSerious194/ptflow-messaging/internal/cache"
	"github.com/SoSerious194/ptflow-messaging/internal/chat"
	"github.com/SoSerious194/ptflow-messaging/internal/client"
	"github.com/SoSerious194/ptflow-messaging/internal/config"
	"github.com/SoSerious194/ptflow-messaging/internal/database"
	"github.com/SoSerious194/ptflow-messaging/internal/repo"
	"github.com/SoSerious194/ptflow-messaging/internal/scheduler"
	"github.com/SoSerious194/ptflow-messaging/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("ptflow-messaging starting (addr=%s, sweep_interval=%s, redis=%v)",
		cfg.Server.Address,
		cfg.Sweeper.Interval,
		cfg.Redis.Enabled,
	)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}

	messages := repo.NewPostgresMessageRepo(db)
	deliveries := repo.NewPostgresDeliveryRepo(db)
	clients := repo.NewPostgresClientRepo(db)
	resolver := audience.NewResolver(clients)

	var deliveryCache cache.DeliveryCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deliveryCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	// The processing endpoint sends through the chat provider directly; the
	// background sweeper goes through the main app's send API so the app
	// stays the single writer of chat state.
	chatTransport := chat.NewClient(cfg.Chat.BaseURL, cfg.Chat.APIKey)
	sendAPI := client.NewSendAPIClient(cfg.SendAPI.URL, cfg.SendAPI.Secret)

	processor := service.NewProcessor(messages, newDispatcher(chatTransport, messages, deliveries, resolver, deliveryCache))
	sweepProcessor := service.NewProcessor(messages, newDispatcher(sendAPI, messages, deliveries, resolver, deliveryCache))

	sweeper, err := scheduler.New(cfg.Sweeper.Interval, func(ctx context.Context) {
		res, err := sweepProcessor.Sweep(ctx, time.Now().UTC(), true)
		if err != nil {
			slog.Error("recurring sweep failed", "error", err)
			return
		}
		slog.Info("recurring sweep done",
			"dispatched", res.Dispatched,
			"processed", res.Processed,
			"errors", len(res.Errors),
		)
	})
	if err != nil {
		log.Fatal(err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	handler := api.NewHandler(processor, sweeper, deliveries, cfg.Auth.EndpointSecret)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(handler)),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

func newDispatcher(
	transport service.Transport,
	messages repo.MessageRepository,
	deliveries repo.DeliveryRepository,
	resolver service.RecipientResolver,
	deliveryCache cache.DeliveryCache,
) *service.Dispatcher {
	d := service.NewDispatcher(transport, messages, deliveries, resolver)
	if deliveryCache != nil {
		d.WithDeliveredHook(deliveryCache.StoreDelivered)
	}
	return d
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
