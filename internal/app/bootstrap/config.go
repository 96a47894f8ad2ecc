// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// appConfigKeys defines the configuration keys for HackHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_key, etc.
//   - Environment variables: HACKHUB_MONGO_URI, HACKHUB_TOKEN_KEY, etc.
//   - Command-line flags: --mongo_uri, --token_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hackhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "token_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Bearer token signing key (must be strong in production)"},
	{Name: "token_ttl", Default: "24h", Desc: "Bearer token lifetime (e.g., 24h, 90m)"},

	{Name: "bcrypt_cost", Default: bcrypt.DefaultCost, Desc: "bcrypt cost for issued credentials"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@hackhub.example", Desc: "From email address"},
	{Name: "mail_from_name", Default: "HackHub", Desc: "From display name"},
	{Name: "mail_enabled", Default: false, Desc: "Send real email; off logs instead"},

	{Name: "site_name", Default: "HackHub", Desc: "Site name used in outbound email"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},
	{Name: "login_url", Default: "", Desc: "Login link included in credential emails (default: <base_url>/login)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, HACKHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HACKHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		TokenKey: appValues.String("token_key"),
		TokenTTL: appValues.Duration("token_ttl", 24*time.Hour),

		BcryptCost: appValues.Int("bcrypt_cost"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		MailEnabled:  appValues.Bool("mail_enabled"),

		SiteName: appValues.String("site_name"),
		BaseURL:  appValues.String("base_url"),
		LoginURL: appValues.String("login_url"),
	}
	appCfg.LoginURL = loginURLFor(appCfg.BaseURL, appCfg.LoginURL)

	return coreCfg, appCfg, nil
}

// loginURLFor resolves the login link used in credential emails: an
// explicit login_url wins, otherwise it is derived from base_url.
func loginURLFor(baseURL, loginURL string) string {
	if loginURL != "" {
		return loginURL
	}
	return strings.TrimRight(baseURL, "/") + "/login"
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// HackHub validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" && appCfg.TokenKey == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("token_key must be changed from the dev default in production")
	}
	if appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost %d outside valid range [%d, %d]", appCfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return nil
}
