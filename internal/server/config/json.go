package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/usersvc/internal/flagx"
	"github.com/dmitrijs2005/usersvc/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "15m" style
// strings or integer nanoseconds. Pointer fields distinguish "absent" from
// the zero value, so a file only overrides what it mentions.
type JsonConfig struct {
	EndpointAddrHTTP     *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC     *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN          *string         `json:"database_dsn"`
	SecretKey            *string         `json:"secret_key"`
	TokenTTL             *timex.Duration `json:"token_ttl"`
	StoreTimeout         *timex.Duration `json:"store_timeout"`
	VerificationCodeTTL  *timex.Duration `json:"verification_code_ttl"`
	AllowUnverifiedLogin *bool           `json:"allow_unverified_login"`
	LogBackend           *string         `json:"log_backend"`
	SMTPHost             *string         `json:"smtp_host"`
	SMTPPort             *string         `json:"smtp_port"`
	SMTPUser             *string         `json:"smtp_user"`
	SMTPPassword         *string         `json:"smtp_password"`
	SMTPFrom             *string         `json:"smtp_from"`
	SMTPSecurity         *string         `json:"smtp_security"`
}

// parseJson loads the file named by -c / -config, if any, over config.
// An unreadable file or invalid JSON panics: the process cannot start with a
// configuration it was told to use but could not read.
func parseJson(config *Config) {
	path := flagx.ConfigFile()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.SMTPSecurity, c.SMTPSecurity)

	if c.TokenTTL != nil {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.StoreTimeout != nil {
		config.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.VerificationCodeTTL != nil {
		config.VerificationCodeTTL = c.VerificationCodeTTL.Duration
	}
	if c.AllowUnverifiedLogin != nil {
		config.AllowUnverifiedLogin = *c.AllowUnverifiedLogin
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
