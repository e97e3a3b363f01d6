package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"medeasy/pharmacy/internal/dashboard"
	"medeasy/pharmacy/internal/metrics"
	"medeasy/pharmacy/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// Options configures a Handler. Zero values fall back to sensible defaults.
type Options struct {
	Secret      string
	TokenTTL    time.Duration
	CORSOrigins []string
	Logger      *zap.Logger
	// Metrics enables instrumentation and the /metrics endpoint when set.
	Metrics *metrics.Metrics
	// Now overrides the clock used for classification and reports.
	Now func() time.Time
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	dashboard *dashboard.Service
	metrics   *metrics.Metrics
	log       *zap.Logger
	secret    string
	tokenTTL  time.Duration
	origins   []string
	now       func() time.Time
}

// New constructs a Handler.
func New(st *store.Store, opts Options) *Handler {
	h := &Handler{
		store:     st,
		dashboard: dashboard.NewService(st),
		metrics:   opts.Metrics,
		log:       opts.Logger,
		secret:    opts.Secret,
		tokenTTL:  opts.TokenTTL,
		origins:   opts.CORSOrigins,
		now:       opts.Now,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = 24 * time.Hour
	}
	if len(h.origins) == 0 {
		h.origins = []string{"*"}
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.health)
	r.Get("/healthz", h.ready)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.authMiddleware)

			pr.Route("/auth", func(r chi.Router) {
				r.Post("/register", h.register)
				r.Get("/me", h.me)
				r.Post("/reset-password", h.resetPassword)
			})
			pr.Get("/users", h.listUsers)

			pr.Get("/dashboard/stats", h.dashboardStats)

			pr.Route("/drugs", func(r chi.Router) {
				r.Get("/", h.listDrugs)
				r.Post("/", h.createDrug)
				r.Get("/status", h.drugStatuses)
				r.Get("/expiring", h.expiringDrugs)
				r.Post("/import", h.importDrugs)
				r.Get("/{id}", h.getDrug)
				r.Put("/{id}", h.updateDrug)
				r.Delete("/{id}", h.deleteDrug)
				r.Get("/{id}/status", h.drugStatus)
			})

			pr.Route("/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
				r.Get("/{id}", h.getSale)
			})

			pr.Route("/purchases", func(r chi.Router) {
				r.Get("/", h.listPurchases)
				r.Post("/", h.createPurchase)
				r.Get("/{id}", h.getPurchase)
				r.Put("/{id}", h.updatePurchase)
			})

			pr.Route("/suppliers", func(r chi.Router) {
				r.Get("/", h.listSuppliers)
				r.Post("/", h.createSupplier)
			})

			pr.Route("/requests", func(r chi.Router) {
				r.Get("/", h.listRequests)
				r.Post("/", h.createRequest)
				r.Get("/{id}", h.getRequest)
				r.Put("/{id}", h.updateRequest)
			})

			pr.Route("/reports", func(r chi.Router) {
				r.Get("/sales/daily", h.dailySales)
				r.Get("/sales/monthly", h.monthlySales)
				r.Get("/sales", h.salesReport)
				r.Get("/inventory.xlsx", h.inventoryWorkbook)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// requestLogger emits one structured line per request.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote", r.RemoteAddr))
	})
}
