package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"lca-backend/internal/auth"
	"lca-backend/internal/calculation/application"
	calcpostgres "lca-backend/internal/calculation/infrastructure/postgres"
	"lca-backend/internal/calculation/interfaces"
	calchttp "lca-backend/internal/calculation/interfaces/http"
	"lca-backend/internal/dispatch"
	dispatchkafka "lca-backend/internal/dispatch/kafka"
	"lca-backend/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	appCfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatalf("app config error: %v", err)
	}

	elementRepo := calcpostgres.NewElementRepository(db)
	referenceRepo := calcpostgres.NewReferenceRepository(db)
	resultRepo := calcpostgres.NewResultRepository(db)

	service, err := application.NewCalculationService(
		elementRepo,
		referenceRepo,
		resultRepo,
		appCfg.AmortizationTable(),
		systemClock{},
		logger,
	)
	if err != nil {
		logger.Fatalf("calculation service error: %v", err)
	}

	producer, err := dispatchkafka.NewClient(dispatchkafka.Config{
		Broker: cfg.KafkaBroker,
		Topic:  cfg.KafkaResultTopic,
	}, logger)
	if err != nil {
		logger.Fatalf("kafka client error: %v", err)
	}
	defer producer.Close()

	dispatcher, err := dispatch.NewDispatcher(producer, producer, logger)
	if err != nil {
		logger.Fatalf("dispatcher error: %v", err)
	}

	consumer, err := interfaces.NewElementUpdateConsumer(service, elementRepo, dispatcher, logger)
	if err != nil {
		logger.Fatalf("element consumer error: %v", err)
	}
	reader, err := dispatchkafka.NewReader(dispatchkafka.ReaderConfig{
		Broker:  cfg.KafkaBroker,
		Topic:   cfg.KafkaElementTopic,
		GroupID: cfg.KafkaGroupID,
	}, consumer, logger)
	if err != nil {
		logger.Fatalf("kafka reader error: %v", err)
	}
	defer reader.Close()
	go func() {
		if err := reader.Run(context.Background()); err != nil {
			logger.Printf("kafka reader stopped: %v", err)
		}
	}()

	handler, err := calchttp.NewHandler(service, dispatcher, logger)
	if err != nil {
		logger.Fatalf("http handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/projects", handler)
	mux.Handle("/api/v1/projects/", handler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	KafkaBroker       string
	KafkaElementTopic string
	KafkaResultTopic  string
	KafkaGroupID      string
	JWTSecret         string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8002"),
		KafkaBroker:       getenvDefault("KAFKA_BROKER", "broker:29092"),
		KafkaElementTopic: getenvDefault("KAFKA_TOPIC_QTO", "qto-elements"),
		KafkaResultTopic:  getenvDefault("KAFKA_TOPIC_LCA", "lca-data"),
		KafkaGroupID:      getenvDefault("KAFKA_GROUP_ID", "lca-plugin-group"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
