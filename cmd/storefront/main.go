package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/shophub-dev/storefront/internal/admin"
	"github.com/shophub-dev/storefront/internal/backend"
	"github.com/shophub-dev/storefront/internal/catalog"
	"github.com/shophub-dev/storefront/internal/checkout"
	"github.com/shophub-dev/storefront/internal/events"
	"github.com/shophub-dev/storefront/internal/kv"
	"github.com/shophub-dev/storefront/internal/mail"
	"github.com/shophub-dev/storefront/internal/web"
	"github.com/shophub-dev/storefront/pkg/logging"
	"github.com/shophub-dev/storefront/pkg/shutdown"
	"github.com/shophub-dev/storefront/pkg/tracing"
)

func main() {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront front-end service for the ShopHub commerce backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	log := logging.New(env("LOG_LEVEL", "info"))

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Configuration
	httpAddr := env("HTTP_ADDR", ":3000")
	backendURL := env("BACKEND_URL", "http://localhost:8080")
	redisAddr := os.Getenv("REDIS_ADDR")
	stateDir := os.Getenv("STATE_DIR")
	kafkaAddr := os.Getenv("KAFKA_ADDR")
	eventsTopic := env("EVENTS_TOPIC", "storefront.events")
	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")

	tp, err := tracing.Init(ctx, "storefront", otlpEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Client state store: redis when configured, a state dir for
	// single-node persistence, memory otherwise. Guard reservations
	// expire after the duplicate-click window.
	const guardTTL = 2 * time.Minute
	var store kv.Store = kv.NewMemory()
	var guard checkout.SubmitGuard
	switch {
	case redisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		store = kv.NewRedis(rdb)
		guard = checkout.NewRedisGuard(rdb, guardTTL)
		log.Info("state store: redis", "addr", redisAddr)
	case stateDir != "":
		fs, err := kv.NewFile(filepath.Join(stateDir, "state.json"))
		if err != nil {
			log.Error("state dir init failed", "err", err)
			return err
		}
		store = fs
		log.Info("state store: file", "dir", stateDir)
	default:
		log.Info("state store: memory")
	}
	if guard == nil {
		guard = checkout.NewKVGuard(store, guardTTL)
	}

	var pub events.Publisher = events.Nop{}
	if kafkaAddr != "" {
		kp := events.NewKafkaPublisher(log, []string{kafkaAddr}, eventsTopic)
		defer kp.Close()
		pub = kp
		log.Info("events: kafka", "addr", kafkaAddr, "topic", eventsTopic)
	}

	var mailer mail.Sender = mail.LogSender{Log: log}
	if apiKey := os.Getenv("SENDGRID_API_KEY"); apiKey != "" {
		mailer = mail.NewSendGrid(apiKey, env("MAIL_FROM", "no-reply@shophub.example"))
		log.Info("mail: sendgrid")
	}

	client := backend.New(log, backendURL)
	sessions := web.NewSessions(store, client)
	client.SetTokenSource(sessions.TokenFromContext)
	client.SetUnauthorizedHook(sessions.InvalidateFromContext)

	server := web.NewServer(log, client, catalog.NewService(client), admin.NewService(client), sessions, guard, pub, mailer)

	r := chi.NewRouter()
	r.Mount("/", server.Routes())
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", httpAddr, "backend", backendURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("storefront shutdown complete")
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
