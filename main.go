package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"windshare/internal/audit"
	"windshare/internal/auth"
	invoicing "windshare/internal/invoicing/domain"
	invoicingrepo "windshare/internal/invoicing/infrastructure/postgres"
	invoicinginterfaces "windshare/internal/invoicing/interfaces"
	masterdataapp "windshare/internal/masterdata/application"
	masterdatarepo "windshare/internal/masterdata/infrastructure/postgres"
	"windshare/internal/observability/metrics"
	periodapp "windshare/internal/period/application"
	periodrepo "windshare/internal/period/infrastructure/postgres"
	periodinterfaces "windshare/internal/period/interfaces"
	"windshare/internal/settlement/allocation"
	settlementapp "windshare/internal/settlement/application"
	settlementrepo "windshare/internal/settlement/infrastructure/postgres"
	settlementinterfaces "windshare/internal/settlement/interfaces"

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
	parkChecker := auth.NewParkChecker(db)
	auditRepo := audit.NewRepository(db)

	revenueCfg, err := settlementapp.LoadRevenueConfig()
	if err != nil {
		logger.Fatalf("revenue config error: %v", err)
	}

	parkRepo := masterdatarepo.NewParkRepository(db)
	turbineRepo := masterdatarepo.NewTurbineRepository(db)
	fundRepo := masterdatarepo.NewFundRepository(db)
	directory, err := masterdataapp.NewDirectory(parkRepo, turbineRepo, fundRepo)
	if err != nil {
		logger.Fatalf("directory error: %v", err)
	}

	taxConfigRepo := invoicingrepo.NewTaxConfigRepository(db, revenueCfg.TaxDefaults())
	allocator := allocation.NewAllocator(taxConfigRepo, revenueCfg.Labels())

	numberSequence := invoicingrepo.NewNumberSequence(map[string]string{
		invoicing.TypeCreditNote: revenueCfg.CreditNotePrefix,
	})
	invoiceRepo := invoicingrepo.NewInvoiceRepository(db)

	settlementRepository := settlementrepo.NewSettlementRepository(db)
	settlementService, err := settlementapp.NewSettlementService(settlementRepository)
	if err != nil {
		logger.Fatalf("settlement service error: %v", err)
	}
	emitStore, err := settlementrepo.NewEmitStore(db, numberSequence)
	if err != nil {
		logger.Fatalf("emit store error: %v", err)
	}
	emitter, err := settlementapp.NewInvoiceEmitter(settlementRepository, allocator, directory, emitStore, revenueCfg.DueDays, logger)
	if err != nil {
		logger.Fatalf("invoice emitter error: %v", err)
	}

	periodRepository := periodrepo.NewPeriodRepository(db)
	periodService, err := periodapp.NewPeriodService(periodRepository)
	if err != nil {
		logger.Fatalf("period service error: %v", err)
	}

	settlementHandler, err := settlementinterfaces.NewSettlementHandler(settlementService, emitter, parkChecker, auditRepo)
	if err != nil {
		logger.Fatalf("settlement handler error: %v", err)
	}
	invoiceHandler, err := invoicinginterfaces.NewInvoiceHandler(invoiceRepo, auditRepo)
	if err != nil {
		logger.Fatalf("invoice handler error: %v", err)
	}
	periodHandler, err := periodinterfaces.NewPeriodHandler(periodService, parkChecker, auditRepo)
	if err != nil {
		logger.Fatalf("period handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/settlements", settlementHandler)
	mux.Handle("/api/v1/settlements/", settlementHandler)
	mux.Handle("/api/v1/invoices/", invoiceHandler)
	mux.Handle("/api/v1/periods", periodHandler)
	mux.Handle("/api/v1/periods/", periodHandler)
	mux.Handle("/api/v1/periods/bulk", periodHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("windshare listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
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
