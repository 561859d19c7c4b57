package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env               string
	Port              string
	SessionSecret     string
	DatabaseURL       string
	RedisURL          string
	SiteName          string // used in notification tokens ({{site_name}})
	SiteURL           string // base URL for {{site_url}} and public invoice links
	AdminEmail        string // last-resort notification recipient
	LicenseKey        string // non-empty unlocks the licensed rule cap
	BrevoAPIKey       string // transactional mail; empty disables outbound mail
	MailFrom          string
	InvoiceSlug       string // path segment for public invoice view URLs
	AllowCrossSiteDev bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	return &Config{
		Env:               env,
		Port:              port,
		SessionSecret:     viper.GetString("SESSION_SECRET"),
		DatabaseURL:       dbURL,
		RedisURL:          viper.GetString("REDIS_URL"),
		SiteName:          strDefault(viper.GetString("SITE_NAME"), "Wicked Billing"),
		SiteURL:           strDefault(viper.GetString("SITE_URL"), "http://localhost:8080"),
		AdminEmail:        viper.GetString("ADMIN_EMAIL"),
		LicenseKey:        viper.GetString("LICENSE_KEY"),
		BrevoAPIKey:       viper.GetString("BREVO_API_KEY"),
		MailFrom:          viper.GetString("MAIL_FROM"),
		InvoiceSlug:       strDefault(viper.GetString("INVOICE_SLUG"), "wicked-invoice"),
		AllowCrossSiteDev: strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
	}, nil
}

func strDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
