package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wadjakorntonsri/lnkzip/pkg/config"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

var (
	allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	allowedHeaders = []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"}
	corsMethods    = strings.Join(allowedMethods, ", ")
	corsHeaders    = strings.Join(allowedHeaders, ", ")
)

// NewRouter creates and configures the main application router
func NewRouter(
	cfg *config.Config,
	links ports.LinkService,
	qrs ports.QRService,
	dashboard ports.DashboardService,
	features ports.FeatureService,
) http.Handler {
	// Initialize Handlers
	h := NewHTTPHandler(links, cfg.RedirectDelay)
	qh := NewQRHandler(qrs)
	dh := NewDashboardHandler(dashboard, features)
	authHandler := NewAuthHandler(cfg)

	// Initialize Middleware
	mw := NewMiddleware(cfg)
	protected := func(fn http.HandlerFunc) http.Handler {
		return mw.RequireAuth(fn)
	}

	// Setup Router
	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	// Preflights carrying Origin are answered by the cors wrapper; this covers bare OPTIONS.
	allowAnyOrigin := slices.Contains(cfg.CORSAllowedOrigins, "*")
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		if allowAnyOrigin {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", corsMethods)
		w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /{$}", h.Redirect)
	mux.HandleFunc("GET /{short_code}", h.Redirect)
	mux.HandleFunc("GET /r/{short_code}", h.RedirectPage)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// API, identity optional
	mux.HandleFunc("POST /api/v1/shorten", h.Shorten)
	mux.HandleFunc("POST /api/v1/qr-codes", qh.Create)
	mux.HandleFunc("POST /api/v1/qr-codes/render", qh.Render)
	mux.HandleFunc("POST /api/v1/qr-codes/{id}/scan", qh.Scan)
	mux.HandleFunc("GET /api/v1/features/{name}", dh.FeatureStatus)
	mux.HandleFunc("POST /api/v1/features/{name}/use", dh.UseFeature)

	// API, identity required
	mux.Handle("GET /api/v1/dashboard", protected(dh.Summary))
	mux.Handle("GET /api/v1/history", protected(dh.History))
	mux.Handle("GET /api/v1/activities", protected(dh.Activities))
	mux.Handle("GET /api/v1/links/{id}/stats", protected(h.Stats))

	var handler http.Handler = mw.Identify(mux)
	handler = RequestLogger(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.RequestID(handler)
	handler = cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: allowedMethods,
		AllowedHeaders: allowedHeaders,
		MaxAge:         300,
	})(handler)

	return handler
}
