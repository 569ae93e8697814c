package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the immutable process configuration, built once at startup and
// passed explicitly to every component constructor.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	Session  SessionConfig  `mapstructure:"session"`
	Cookie   CookieConfig   `mapstructure:"cookie"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	OIDC     OIDCConfig     `mapstructure:"oidc"`
	Claims   ClaimsConfig   `mapstructure:"claims"`
	Resource ResourceConfig `mapstructure:"resource"`
	Authz    AuthzConfig    `mapstructure:"authz"`

	ExemptPaths      []string `mapstructure:"exempt_paths"`
	RemoteUserHeader string   `mapstructure:"remote_user_header" validate:"required"`
}

type SessionConfig struct {
	CookieName    string `mapstructure:"cookie_name"   validate:"required"`
	SharedSecret  string `mapstructure:"shared_secret" validate:"required,base64"`
	MaxAgeSeconds int    `mapstructure:"max_age_seconds"`
	Secure        bool   `mapstructure:"secure"`
}

// SecretBytes decodes the base64 shared secret used for session and account
// cookie verification.
func (c SessionConfig) SecretBytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(c.SharedSecret)
	if err != nil {
		return nil, fmt.Errorf("session shared_secret is not valid base64: %w", err)
	}
	return b, nil
}

type CookieConfig struct {
	AccountCookieName string `mapstructure:"account_cookie_name"`
	OpenIDCookieName  string `mapstructure:"openid_cookie_name"`
}

// OAuthConfig configures the bearer-token introspection client. Leaving the
// introspect URL empty disables the bearer strategy.
type OAuthConfig struct {
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	IntrospectURL string `mapstructure:"introspect_url" validate:"omitempty,url"`
}

// OIDCConfig configures the interactive login flow. Leaving the issuer empty
// disables the flow and its callback strategy.
type OIDCConfig struct {
	Issuer       string   `mapstructure:"issuer" validate:"omitempty,url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url" validate:"omitempty,url"`
	Scopes       []string `mapstructure:"scopes"`
}

// ClaimsConfig overrides the field names used to extract identity claims
// from introspection and userinfo documents.
type ClaimsConfig struct {
	Username string `mapstructure:"username" validate:"required"`
	Groups   string `mapstructure:"groups"   validate:"required"`
	OpenID   string `mapstructure:"openid"   validate:"required"`
}

type ResourceConfig struct {
	QueryKey  string `mapstructure:"query_key"  validate:"required"`
	HeaderKey string `mapstructure:"header_key" validate:"required"`
	ServerURI string `mapstructure:"server_uri"`
}

type AuthzConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=saml opa fga mock"`

	SAML      SAMLConfig `mapstructure:"saml"`
	OPA       OPAConfig  `mapstructure:"opa"`
	FGA       FGAConfig  `mapstructure:"fga"`
	MockAllow bool       `mapstructure:"mock_allow"`
}

type SAMLConfig struct {
	ServiceURL string `mapstructure:"service_url" validate:"omitempty,url"`
	Issuer     string `mapstructure:"issuer"`
}

type OPAConfig struct {
	URL         string `mapstructure:"url" validate:"omitempty,url"`
	PackagePath string `mapstructure:"package_path"`
	Rule        string `mapstructure:"rule"`
}

type FGAConfig struct {
	APIURL   string `mapstructure:"api_url" validate:"omitempty,url"`
	StoreID  string `mapstructure:"store_id"`
	APIToken string `mapstructure:"api_token"`
	ModelID  string `mapstructure:"model_id"`
}

// Load reads configuration from the given file (optional) with AUTHGATE_*
// environment overrides and validates it. Any missing required setting is a
// startup failure, never a per-request condition.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("/etc/authgate")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if !errors.As(err, &nf) && path == "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// setDefaults registers a default for every recognized key so environment
// overrides bind even without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")

	v.SetDefault("session.cookie_name", "authgate_session")
	v.SetDefault("session.shared_secret", "")
	v.SetDefault("session.max_age_seconds", 86400)
	v.SetDefault("session.secure", false)

	v.SetDefault("cookie.account_cookie_name", "account")
	v.SetDefault("cookie.openid_cookie_name", "openid")

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.introspect_url", "")

	v.SetDefault("oidc.issuer", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("oidc.scopes", []string{"openid", "profile"})

	v.SetDefault("claims.username", "preferred_username")
	v.SetDefault("claims.groups", "groups")
	v.SetDefault("claims.openid", "openid")

	v.SetDefault("resource.query_key", "next")
	v.SetDefault("resource.header_key", "X-Origin-Uri")
	v.SetDefault("resource.server_uri", "")

	v.SetDefault("authz.backend", "mock")
	v.SetDefault("authz.mock_allow", true)
	v.SetDefault("authz.saml.service_url", "")
	v.SetDefault("authz.saml.issuer", "")
	v.SetDefault("authz.opa.url", "")
	v.SetDefault("authz.opa.package_path", "")
	v.SetDefault("authz.opa.rule", "")
	v.SetDefault("authz.fga.api_url", "")
	v.SetDefault("authz.fga.store_id", "")
	v.SetDefault("authz.fga.api_token", "")
	v.SetDefault("authz.fga.model_id", "")

	v.SetDefault("exempt_paths", []string{})
	v.SetDefault("remote_user_header", "X-Remote-User")
}

// Validate checks the struct tags plus the cross-field requirements of the
// selected backends.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Session.SecretBytes(); err != nil {
		return err
	}

	switch c.Authz.Backend {
	case "saml":
		if c.Authz.SAML.ServiceURL == "" {
			return errors.New("authz.saml.service_url is required for the saml backend")
		}
	case "opa":
		if c.Authz.OPA.URL == "" || c.Authz.OPA.PackagePath == "" || c.Authz.OPA.Rule == "" {
			return errors.New("authz.opa.url, package_path and rule are required for the opa backend")
		}
	case "fga":
		if c.Authz.FGA.APIURL == "" || c.Authz.FGA.StoreID == "" {
			return errors.New("authz.fga.api_url and store_id are required for the fga backend")
		}
	}

	if c.OIDC.Issuer != "" && c.OIDC.ClientID == "" {
		return errors.New("oidc.client_id is required when oidc.issuer is set")
	}
	if c.OAuth.IntrospectURL != "" && c.OAuth.ClientID == "" {
		return errors.New("oauth.client_id is required when oauth.introspect_url is set")
	}
	return nil
}
