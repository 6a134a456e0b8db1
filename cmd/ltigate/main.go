package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"

	"github.com/mind-engage/lti-gateway/internal/auth"
	"github.com/mind-engage/lti-gateway/internal/config"
	"github.com/mind-engage/lti-gateway/internal/db"
	"github.com/mind-engage/lti-gateway/internal/launcher"
	"github.com/mind-engage/lti-gateway/internal/provider"
	"github.com/mind-engage/lti-gateway/internal/rbac"
	"github.com/mind-engage/lti-gateway/pkg/blti"
)

func main() {
	flags := pflag.NewFlagSet("ltigate", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to yaml config file")
	flags.String("http_addr", "", "listen address (overrides config)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := provider.NewSQLStore(dbh, cfg.DB.Driver)

	// --- Services ---
	sessions := auth.NewService(cfg.Session.HMACSecret, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	perms := rbac.NewChecker(nil)

	validator := &blti.Validator{
		Config: blti.ValidatorConfig{
			Enabled:          cfg.Provider.Enabled,
			AllowedTools:     cfg.Provider.AllowedTools,
			TrustedConsumers: cfg.Provider.TrustedConsumers,
		},
		Secrets: cfg.ProviderSecrets(),
		Tools:   provider.Catalog(cfg.Provider.Tools),
	}
	provSvc := &provider.Service{
		Users: store,
		Sites: store,
		Tools: provider.Catalog(cfg.Provider.Tools),
		Perms: perms,
	}
	launchSvc := &launcher.Service{
		Sites:         store,
		Users:         store,
		Perms:         perms,
		Org:           cfg.Org(),
		Secrets:       cfg.ConsumerSecrets(),
		OAuthCallback: cfg.Consumer.OAuthCallback,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Inbound launches arrive unauthenticated; the signature is the
	// authentication.
	launchIn := provider.LaunchHandler(validator, provSvc, sessions, cfg.PublicURL)
	r.Get("/provider/{toolID}", launchIn)
	r.Post("/provider/{toolID}", launchIn)

	// Outbound launches require the session minted by an inbound
	// launch (or any other login flow sharing the cookie).
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(sessions))
		pr.With(rbac.Require("tool:launch")).
			Get("/launch/{placementID}", launcher.LaunchHandler(launchSvc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, provider_enabled=%v)", cfg.HTTPAddr, cfg.DB.Driver, cfg.Provider.Enabled)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
