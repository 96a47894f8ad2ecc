// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, and request limits. AppConfig is where
// everything specific to HackHub lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token configuration
	TokenKey string        // Secret key for signing bearer tokens (must be strong in production)
	TokenTTL time.Duration // Token lifetime

	// Password hashing cost for issued credentials
	BcryptCost int

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty disables auth)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@hackhub.example)
	MailFromName string // From display name (e.g., HackHub)
	MailEnabled  bool   // false logs instead of sending (dev default)

	// Site identity used in outbound email
	SiteName string
	BaseURL  string // e.g., "https://hackhub.example"
	LoginURL string // link included in credential emails
}
