package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/mergington/internal/api"
	"example.com/mergington/internal/config"
	"example.com/mergington/internal/domain"
	"example.com/mergington/internal/observability"
	"example.com/mergington/internal/outbox"
	"example.com/mergington/internal/roster"
	httptransport "example.com/mergington/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := roster.NewSeededStore()
	for name, activity := range store.Snapshot(ctx) {
		observability.RecordParticipants(name, len(activity.Participants))
	}

	var (
		publisher  outbox.Publisher = outbox.NoopPublisher{}
		dispatcher *outbox.Dispatcher
	)
	if cfg.EventsEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		var opts []outbox.Option
		if cfg.SchemaRegistryURL != "" {
			opts = append(opts, outbox.WithSchemaRegistry(outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL, cfg.HTTPTimeout)))
		}
		dispatcher = outbox.NewDispatcher(producer, outbox.DispatcherConfig{
			Topic:         cfg.RosterTopic,
			BufferSize:    cfg.OutboxBufferSize,
			BatchSize:     cfg.OutboxBatchSize,
			FlushInterval: cfg.OutboxFlushEvery,
		}, opts...)
		go dispatcher.Start(ctx)
		publisher = dispatcher
		log.Printf("publishing roster events to %s via %v", cfg.RosterTopic, cfg.KafkaBrokers)
	}

	service := domain.NewService(store, publisher)

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /static/", api.StaticFiles(cfg.StaticDir))
	mux.Handle("/metrics", promhttp.Handler())

	logged := httptransport.RequestLogger(log.Default())
	cors := httptransport.CORS(cfg.CORSAllowedOrigin)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logged(cors(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("mergington activities listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
