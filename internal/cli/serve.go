package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cedadev/authgate/internal/authn"
	"github.com/cedadev/authgate/internal/config"
	"github.com/cedadev/authgate/internal/di"
	"github.com/cedadev/authgate/internal/resource"
	"github.com/cedadev/authgate/internal/server"
	"github.com/cedadev/authgate/internal/session"
)

func cmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			deps, err := buildDeps(cfg)
			if err != nil {
				return err
			}

			h := server.BuildRouter(*deps)
			slog.Info("listening", "addr", cfg.ListenAddr, "authz_backend", cfg.Authz.Backend)
			return http.ListenAndServe(cfg.ListenAddr, h)
		},
	}
}

// buildDeps wires the strategies and backends the configuration enables.
// Strategy order is fixed: bearer, then the OIDC callback leg, then the
// encrypted cookies.
func buildDeps(cfg *config.Config) (*server.Deps, error) {
	secret, err := cfg.Session.SecretBytes()
	if err != nil {
		return nil, err
	}

	store := session.NewStore(
		cfg.Session.CookieName, secret, cfg.Session.MaxAgeSeconds, cfg.Session.Secure)

	keys := authn.ClaimKeys{
		Username: cfg.Claims.Username,
		Groups:   cfg.Claims.Groups,
		OpenID:   cfg.Claims.OpenID,
	}
	remoteClient := &http.Client{Timeout: 15 * time.Second}

	var strategies []authn.Strategy
	var oidc *authn.OIDC

	if cfg.OAuth.IntrospectURL != "" {
		strategies = append(strategies, &authn.Bearer{
			IntrospectURL: cfg.OAuth.IntrospectURL,
			ClientID:      cfg.OAuth.ClientID,
			ClientSecret:  cfg.OAuth.ClientSecret,
			Keys:          keys,
			Client:        remoteClient,
		})
	}
	if cfg.OIDC.Issuer != "" {
		oidc = authn.NewOIDC(
			cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret,
			cfg.OIDC.RedirectURL, cfg.OIDC.Scopes, keys)
		oidc.Client = remoteClient
		strategies = append(strategies, oidc)
	}
	if cfg.Cookie.AccountCookieName != "" {
		strategies = append(strategies,
			authn.NewCookie(cfg.Cookie.AccountCookieName, cfg.Cookie.OpenIDCookieName, secret))
	}

	authorizer, err := di.ProvideAuthorizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	return &server.Deps{
		Config:       cfg,
		SessionStore: store,
		Pipeline:     authn.NewPipeline(strategies...),
		Authorizer:   authorizer,
		Resolver: &resource.Resolver{
			QueryKey:  cfg.Resource.QueryKey,
			HeaderKey: cfg.Resource.HeaderKey,
			ServerURI: cfg.Resource.ServerURI,
		},
		OIDC: oidc,
	}, nil
}
