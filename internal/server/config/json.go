package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/siatlite/casedesk/internal/dbx"
	"github.com/siatlite/casedesk/internal/flagx"
	"github.com/siatlite/casedesk/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Pointer and timex fields let
// an absent key keep the value set by an earlier layer.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDriver   string `json:"database_driver"`
	DatabaseDSN      string `json:"database_dsn"`
	LogLevel         string `json:"log_level"`

	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	ConfirmTokenTTL             *timex.Duration `json:"confirm_token_ttl"`
	ResetTokenTTL               *timex.Duration `json:"reset_token_ttl"`
	BcryptCost                  int             `json:"bcrypt_cost"`
	StrictLoginErrors           *bool           `json:"strict_login_errors"`

	PublicBaseURL  string `json:"public_base_url"`
	NotifyProvider string `json:"notify_provider"`
	MailFrom       string `json:"mail_from"`
	SMTPHost       string `json:"smtp_host"`
	SMTPPort       int    `json:"smtp_port"`
	SMTPUsername   string `json:"smtp_username"`
	SMTPPassword   string `json:"smtp_password"`
	SendGridAPIKey string `json:"sendgrid_api_key"`

	RedisAddr      string          `json:"redis_addr"`
	ThrottleLimit  *int            `json:"throttle_limit"`
	ThrottleWindow *timex.Duration `json:"throttle_window"`

	TokenPurgeInterval *timex.Duration `json:"token_purge_interval"`
	TokenRetention     *timex.Duration `json:"token_retention"`
}

// parseJson overlays the file named by -c/-config in args. No flag, no-op.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.DatabaseDriver != "" {
		config.DatabaseDriver = dbx.Dialect(c.DatabaseDriver)
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.ConfirmTokenTTL, c.ConfirmTokenTTL)
	setDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.StrictLoginErrors != nil {
		config.StrictLoginErrors = *c.StrictLoginErrors
	}

	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.NotifyProvider, c.NotifyProvider)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SendGridAPIKey, c.SendGridAPIKey)

	setString(&config.RedisAddr, c.RedisAddr)
	if c.ThrottleLimit != nil {
		config.ThrottleLimit = *c.ThrottleLimit
	}
	setDuration(&config.ThrottleWindow, c.ThrottleWindow)

	setDuration(&config.TokenPurgeInterval, c.TokenPurgeInterval)
	setDuration(&config.TokenRetention, c.TokenRetention)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
