// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultHostname is the public HCP Terraform hostname
	DefaultHostname = "app.terraform.io"
	// DefaultPort is the port the relay listens on when PORT is unset
	DefaultPort = 5000
	// DefaultDispatchTimeout bounds a single Runs API call
	DefaultDispatchTimeout = 30 * time.Second
)

// Keys recognised in the environment and in the optional YAML file.
// File keys are the lower-cased environment variable names.
const (
	keyToken             = "tfe_token"
	keyHostname          = "tfe_hostname"
	keySSLSkipVerify     = "tfe_ssl_skip_verify"
	keyNotificationToken = "tfe_notification_token"
	keyAutoApply         = "tfe_auto_apply"
	keyPort              = "port"
	keyDebug             = "debug"
	keyDispatchTimeout   = "tfe_dispatch_timeout"
	keyDedupWindow       = "tfe_dedup_window"
	keyRateLimit         = "tfe_rate_limit"
	keyDestroyOnTeardown = "tfe_conditional_destroy"
	keyRetryErrored      = "tfe_conditional_retry_errored"
)

var knownKeys = map[string]struct{}{
	keyToken:             {},
	keyHostname:          {},
	keySSLSkipVerify:     {},
	keyNotificationToken: {},
	keyAutoApply:         {},
	keyPort:              {},
	keyDebug:             {},
	keyDispatchTimeout:   {},
	keyDedupWindow:       {},
	keyRateLimit:         {},
	keyDestroyOnTeardown: {},
	keyRetryErrored:      {},
}

// Config is the process-wide relay configuration. It is built once at
// startup and must not be modified afterwards.
type Config struct {
	// Token is the Terraform API bearer token
	Token string
	// Hostname of the HCP Terraform or Terraform Enterprise instance
	Hostname string
	// SSLSkipVerify disables TLS certificate verification for the API
	SSLSkipVerify bool
	// NotificationToken is the HMAC key shared with the notification
	// configuration. Empty disables signature verification.
	NotificationToken string
	// AutoApply sets auto-apply on every run the relay creates
	AutoApply bool
	// Port is the HTTP listen port
	Port int
	// Verbose enables debug logging
	Verbose bool
	// DispatchTimeout bounds each outbound Runs API call
	DispatchTimeout time.Duration
	// DedupWindow is how long a dispatched notification is remembered.
	// Zero disables duplicate suppression.
	DedupWindow time.Duration
	// RateLimit is the number of runs allowed per workspace per minute.
	// Zero disables rate limiting.
	RateLimit int
	// Policy holds the opt-in rules of the conditional endpoint
	Policy Policy
}

// Policy holds the opt-in conditional routing rules
type Policy struct {
	// DestroyOnTeardown routes completed runs whose message mentions
	// destroy or teardown to a destroy run
	DestroyOnTeardown bool
	// RetryErrored routes errored runs to a fresh apply run
	RetryErrored bool
}

// ConfigurationError reports configuration that prevents the relay from starting
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", strings.ToUpper(e.Key), e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Default returns a Config populated with defaults and no token
func Default() *Config {
	return &Config{
		Hostname:        DefaultHostname,
		Port:            DefaultPort,
		DispatchTimeout: DefaultDispatchTimeout,
	}
}

// Load reads configuration from the optional YAML file at path and then from
// the environment, environment taking precedence. It returns a
// *ConfigurationError when TFE_TOKEN is missing or a value cannot be parsed.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("reading %s", path), Err: err}
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, &ConfigurationError{Reason: "reading environment", Err: err}
	}

	return fromKoanf(k)
}

// envKey maps an environment variable name onto a config key, dropping
// variables the relay does not know about
func envKey(name string) string {
	key := strings.ToLower(name)
	if _, ok := knownKeys[key]; !ok {
		return ""
	}
	return key
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	cfg := Default()

	cfg.Token = strings.TrimSpace(k.String(keyToken))
	if cfg.Token == "" {
		return nil, &ConfigurationError{Key: keyToken, Reason: "is required"}
	}

	if host := strings.TrimSpace(k.String(keyHostname)); host != "" {
		cfg.Hostname = host
	}
	cfg.NotificationToken = k.String(keyNotificationToken)
	cfg.SSLSkipVerify = parseBool(k.String(keySSLSkipVerify))
	cfg.AutoApply = parseBool(k.String(keyAutoApply))
	cfg.Verbose = parseBool(k.String(keyDebug))
	cfg.Policy.DestroyOnTeardown = parseBool(k.String(keyDestroyOnTeardown))
	cfg.Policy.RetryErrored = parseBool(k.String(keyRetryErrored))

	var err error
	if cfg.Port, err = intValue(k, keyPort, cfg.Port); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, &ConfigurationError{Key: keyPort, Reason: fmt.Sprintf("%d is out of range", cfg.Port)}
	}
	if cfg.RateLimit, err = intValue(k, keyRateLimit, 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit < 0 {
		return nil, &ConfigurationError{Key: keyRateLimit, Reason: "must not be negative"}
	}
	if cfg.DispatchTimeout, err = durationValue(k, keyDispatchTimeout, cfg.DispatchTimeout); err != nil {
		return nil, err
	}
	if cfg.DispatchTimeout <= 0 {
		return nil, &ConfigurationError{Key: keyDispatchTimeout, Reason: "must be positive"}
	}
	if cfg.DedupWindow, err = durationValue(k, keyDedupWindow, 0); err != nil {
		return nil, err
	}
	if cfg.DedupWindow < 0 {
		return nil, &ConfigurationError{Key: keyDedupWindow, Reason: "must not be negative"}
	}

	return cfg, nil
}

// BaseURL returns the address of the Terraform instance
func (c *Config) BaseURL() string {
	return "https://" + c.Hostname
}

// VerificationEnabled reports whether inbound signatures are checked
func (c *Config) VerificationEnabled() bool {
	return c.NotificationToken != ""
}

// LogValues returns key/value pairs describing the configuration with
// credentials redacted
func (c *Config) LogValues() []any {
	return []any{
		"hostname", c.Hostname,
		"apiURL", c.BaseURL() + "/api/v2",
		"token", redact(c.Token),
		"notificationToken", redact(c.NotificationToken),
		"sslVerify", !c.SSLSkipVerify,
		"autoApply", c.AutoApply,
		"port", c.Port,
		"dispatchTimeout", c.DispatchTimeout.String(),
		"dedupWindow", c.DedupWindow.String(),
		"rateLimitPerMinute", c.RateLimit,
		"destroyOnTeardown", c.Policy.DestroyOnTeardown,
		"retryErrored", c.Policy.RetryErrored,
	}
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// parseBool accepts true, 1 and yes, case-insensitively
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func intValue(k *koanf.Koanf, key string, def int) (int, error) {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("%q is not an integer", raw), Err: err}
	}
	return v, nil
}

func durationValue(k *koanf.Koanf, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: fmt.Sprintf("%q is not a duration", raw), Err: err}
	}
	return v, nil
}
