package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"push-delivery-plane/internal/config"
	"push-delivery-plane/internal/db"
	"push-delivery-plane/internal/deliverylog"
	logrepo "push-delivery-plane/internal/deliverylog/repository"
	"push-delivery-plane/internal/dispatch"
	"push-delivery-plane/internal/events"
	"push-delivery-plane/internal/events/producer"
	"push-delivery-plane/internal/server"
	"push-delivery-plane/internal/server/handler"
	subscriptionrepo "push-delivery-plane/internal/subscription/repository"
	"push-delivery-plane/internal/telemetry/otel"
	"push-delivery-plane/internal/webpush"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Fail fast: a server without a VAPID identity cannot deliver anything.
	identity, err := webpush.NewIdentity(cfg.VAPIDPrivateKey, cfg.VAPIDPublicKey, cfg.VAPIDSubject)
	if err != nil {
		log.Fatalf("vapid: %v (generate a keypair with ./cmd/vapidgen)", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "push-delivery-plane", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	metrics, err := dispatch.NewMetrics(providers.MeterProvider.Meter("push-delivery-plane/dispatch"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	dispatcher := dispatch.NewDispatcher(identity)
	dispatcher.HTTPClient = &http.Client{Timeout: cfg.DispatchRequestTimeout()}
	dispatcher.TTLSeconds = cfg.PushTTLSeconds
	dispatcher.MaxAttempts = cfg.DispatchMaxAttempts

	recorders := dispatch.Recorders{
		deliverylog.NewLogger(logrepo.NewPostgresRepository(database)),
	}
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		recorders = append(recorders, events.NewRecorder(kafkaProducer))
	}

	orchestrator := dispatch.NewOrchestrator(
		subscriptionrepo.NewPostgresRepository(database),
		dispatcher,
		recorders,
		metrics,
		cfg.DispatchConcurrency,
	)

	push := handler.NewPushHandler(orchestrator, logrepo.NewPostgresRepository(database))
	health := handler.NewHealthHandler(database)
	router := server.NewRouter(push, health, providers.TracerProvider, providers.MeterProvider)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	if kafkaProducer != nil {
		// Give in-flight async event emits time to complete before the
		// producer goes away.
		time.Sleep(events.ShutdownDrainDuration)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
