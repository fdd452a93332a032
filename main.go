package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"opsledger/internal/audit"
	"opsledger/internal/auth"
	billingapp "opsledger/internal/billing/application"
	billingevents "opsledger/internal/billing/application/events"
	billingrepo "opsledger/internal/billing/infrastructure/postgres"
	billinginterfaces "opsledger/internal/billing/interfaces"
	"opsledger/internal/eventing"
	"opsledger/internal/eventing/eventbus"
	eventingrepo "opsledger/internal/eventing/infrastructure/postgres"
	ledgerapp "opsledger/internal/ledger/application"
	ledgerrepo "opsledger/internal/ledger/infrastructure/postgres"
	ledgerinterfaces "opsledger/internal/ledger/interfaces"
	masterdatarepo "opsledger/internal/masterdata/infrastructure/postgres"
	"opsledger/internal/observability/metrics"
	payrollapp "opsledger/internal/payroll/application"
	payrollinterfaces "opsledger/internal/payroll/interfaces"
	reportinghttp "opsledger/internal/reporting/http"

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
	auditRepo := audit.NewRepository(db)

	clientRepo := masterdatarepo.NewClientRepository(db)
	projectRepo := masterdatarepo.NewProjectRepository(db)
	employeeRepo := masterdatarepo.NewEmployeeRepository(db)
	invoiceRepo := billingrepo.NewInvoiceRepository(db)

	baseBus := eventbus.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(billingevents.PaymentReceived{})
	registry.Register(billingevents.InvoiceCancelled{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, cfg.ActorID, baseBus)

	ledgerStore := ledgerrepo.NewStore(db)
	ledgerConsumer, err := ledgerapp.NewConsumer(ledgerStore, logger)
	if err != nil {
		logger.Fatalf("ledger consumer error: %v", err)
	}
	eventing.Subscribe(baseBus, eventbus.EventTypeOf[billingevents.PaymentReceived](), "ledger.payment", ledgerConsumer.HandlePaymentReceived, processedStore)
	eventing.Subscribe(baseBus, eventbus.EventTypeOf[billingevents.InvoiceCancelled](), "ledger.cancellation", ledgerConsumer.HandleInvoiceCancelled, processedStore)

	billingPublisher := billinginterfaces.NewOutboxPublisher(publisher, cfg.ActorID)
	invoiceService, err := billingapp.NewInvoiceService(invoiceRepo, clientRepo, projectRepo, billingPublisher, billingapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("invoice service error: %v", err)
	}

	payrollCfg, schedule, policy, err := payrollapp.LoadConfig()
	if err != nil {
		logger.Fatalf("payroll config error: %v", err)
	}
	payrollService, err := payrollapp.NewPayrollService(employeeRepo, schedule, policy, payrollCfg.Currency, payrollapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("payroll service error: %v", err)
	}

	invoiceHandler, err := billinginterfaces.NewInvoiceHandler(invoiceService, auditRepo)
	if err != nil {
		logger.Fatalf("invoice handler error: %v", err)
	}
	payrollHandler, err := payrollinterfaces.NewPayrollHandler(payrollService, auditRepo)
	if err != nil {
		logger.Fatalf("payroll handler error: %v", err)
	}
	ledgerHandler, err := ledgerinterfaces.NewLedgerHandler(ledgerStore)
	if err != nil {
		logger.Fatalf("ledger handler error: %v", err)
	}
	webhookHandler, err := billinginterfaces.NewPaymentWebhookHandler(invoiceService)
	if err != nil {
		logger.Fatalf("payment webhook handler error: %v", err)
	}
	reportsHandler := reportinghttp.NewReportsHandler(db)

	accessPolicy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/api/v1/webhooks/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), accessPolicy)
	webhookAuth := auth.NewWebhookAuthMiddleware([]byte(cfg.WebhookSecret), time.Duration(cfg.WebhookSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/webhooks/payments", webhookAuth.Wrap(webhookHandler))
	mux.Handle("/api/v1/invoices", invoiceHandler)
	mux.Handle("/api/v1/invoices/", invoiceHandler)
	mux.Handle("/api/v1/payroll/", payrollHandler)
	mux.Handle("/api/v1/ledger", ledgerHandler)
	mux.Handle("/api/v1/reports/", reportsHandler)
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
	DatabaseURL        string
	HTTPAddr           string
	ActorID            string
	JWTSecret          string
	WebhookSecret      string
	WebhookSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		ActorID:            getenvDefault("SERVICE_ACTOR_ID", "system"),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		WebhookSecret:      getenvDefault("WEBHOOK_HMAC_SECRET", ""),
		WebhookSkewSeconds: getenvIntDefault("WEBHOOK_MAX_SKEW_SECONDS", 300),
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

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
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
