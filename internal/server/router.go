package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cedadev/authgate/internal/authn"
	"github.com/cedadev/authgate/internal/authz"
	"github.com/cedadev/authgate/internal/config"
	"github.com/cedadev/authgate/internal/handlers"
	mw2 "github.com/cedadev/authgate/internal/mw"
	"github.com/cedadev/authgate/internal/resource"
	"github.com/cedadev/authgate/internal/session"
	"github.com/cedadev/authgate/internal/version"
)

type Deps struct {
	Config       *config.Config
	SessionStore *session.Store
	Pipeline     *authn.Pipeline
	Authorizer   authz.Authorizer
	Resolver     *resource.Resolver

	// OIDC enables the interactive login routes when non-nil.
	OIDC *authn.OIDC
}

// builtinExempt are the gateway's own routes; they are never subject to a
// decision query.
var builtinExempt = []string{
	"/", "/healthz", "/version",
	"/auth", "/login", "/login/callback", "/logout",
}

func BuildRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// baseline
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// auth verdicts must never be served from an intermediary cache
	r.Use(mw2.NoStore)

	r.Use(cors.Handler(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// tracing + logger
	r.Use(mw2.Trace())
	r.Use(mw2.Logger(mw2.LogOpts{
		SkipPaths:     []string{"/healthz", "/version"},
		RedactHeaders: []string{"Authorization", "Cookie"},
	}))

	r.Use(mw2.WithSession(d.SessionStore))
	r.Use(mw2.Authenticate(d.Pipeline))

	exempt := append([]string{}, builtinExempt...)
	exempt = append(exempt, d.Config.ExemptPaths...)
	r.Use(mw2.Gate(mw2.GateOpts{
		Resolver:    d.Resolver,
		Authorizer:  d.Authorizer,
		ExemptPaths: exempt,
	}))

	verify := handlers.NewVerifyHandler(d.Config.RemoteUserHeader)

	r.Get("/", handlers.Home)
	r.Get("/healthz", healthCheckHandler)
	r.Get("/version", handlers.Version)

	r.Get("/auth", handlers.Auth)
	r.Get("/logout", handlers.Logout)

	if d.OIDC != nil {
		login := handlers.NewLoginHandler(d.OIDC, d.Resolver)
		r.Get("/login", login.Login)
		r.Get("/login/callback", login.Callback)
	}

	// the auth-subrequest endpoints the reverse proxy points at
	r.Get("/verify", verify.ServeHTTP)
	r.Get("/authorize", verify.ServeHTTP)

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}
