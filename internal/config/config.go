package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pulsecall/internal/triage"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded by the process).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Store   StoreConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Triage  triage.Thresholds
	Notify  NotifyConfig
	Twilio  TwilioConfig
	Dialer  DialerConfig
	Webhook WebhookConfig
	Retry   RetryConfig
}

type AppConfig struct {
	Env  string
	Port int
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type StoreConfig struct {
	// Backend is memory or postgres.
	Backend string
	// AutoMigrate applies migrations/001_init.sql on boot (postgres only).
	AutoMigrate bool
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. When Host is set the per-call lock and the retry
// queue move to Redis so several API instances can share them.
type RedisConfig struct {
	Host    string
	Port    int
	LockTTL time.Duration
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type NotifyConfig struct {
	// OnTranscriptFlags also alerts for keyword escalations on completed calls.
	OnTranscriptFlags bool
	MaxElapsed        time.Duration
	OperatorPhone     string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Enabled reports whether SMS alerts can be sent.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

type DialerConfig struct {
	BaseURL    string
	APIKey     string
	AgentID    string
	MaxElapsed time.Duration
}

type WebhookConfig struct {
	// Secret signs provider webhooks; empty disables verification.
	Secret string
}

type RetryConfig struct {
	Delay time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real env vars win.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	{
		b, err := optionalBool("DB_AUTO_MIGRATE")
		parseErrs = appendErr(parseErrs, err)
		c.Store.AutoMigrate = b
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.LockTTL = mustDuration("CALL_LOCK_TTL")

	c.Auth = readAuth()

	// Unset thresholds keep their defaults; an explicit 0 is a real value.
	c.Triage = triage.DefaultThresholds()
	for key, dst := range map[string]*float64{
		"TRIAGE_SILENCE_RATIO_CRITICAL":   &c.Triage.SilenceRatioCritical,
		"TRIAGE_SILENT_SPEECH_CEILING":    &c.Triage.SilentSpeechCeiling,
		"TRIAGE_SPEECH_PROBABILITY_FLOOR": &c.Triage.SpeechProbabilityFloor,
	} {
		f, set, err := optionalFloat(key)
		parseErrs = appendErr(parseErrs, err)
		if set {
			*dst = f
		}
	}

	{
		b, err := optionalBool("NOTIFY_ON_TRANSCRIPT_FLAGS")
		parseErrs = appendErr(parseErrs, err)
		c.Notify.OnTranscriptFlags = b
	}
	c.Notify.MaxElapsed = mustDuration("NOTIFY_MAX_ELAPSED")
	c.Notify.OperatorPhone = strings.TrimSpace(os.Getenv("NOTIFY_OPERATOR_PHONE"))

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER"))

	c.Dialer.BaseURL = strings.TrimSpace(os.Getenv("DIALER_BASE_URL"))
	c.Dialer.APIKey = os.Getenv("DIALER_API_KEY")
	c.Dialer.AgentID = strings.TrimSpace(os.Getenv("DIALER_AGENT_ID"))
	c.Dialer.MaxElapsed = mustDuration("DIALER_MAX_ELAPSED")

	c.Webhook.Secret = os.Getenv("PROVIDER_WEBHOOK_SECRET")

	c.Retry.Delay = mustDuration("RETRY_DELAY")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDefaults fills optional settings. Production must still be explicit
// about DB_SSLMODE; Validate enforces that.
func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" && !c.IsProduction() {
		c.DB.SSLMode = "disable"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.LockTTL <= 0 {
		c.Redis.LockTTL = 30 * time.Second
	}
	c.Auth.applyDefaults()
	if c.Notify.MaxElapsed <= 0 {
		c.Notify.MaxElapsed = 20 * time.Second
	}
	if c.Dialer.MaxElapsed <= 0 {
		c.Dialer.MaxElapsed = 15 * time.Second
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = 15 * time.Minute
	}
}

// LoadAuth reads only the JWT settings. Used by tools that mint tokens
// without needing the rest of the API configuration.
func LoadAuth() (AuthConfig, error) {
	_ = godotenv.Load()

	a := readAuth()
	a.applyDefaults()
	if a.JWTSecret == "" {
		return AuthConfig{}, errors.New("JWT_SECRET is required")
	}
	return a, nil
}

func readAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
		// Duration env vars are optional; defaults applied in applyDefaults().
		AccessTokenTTL: mustDuration("JWT_ACCESS_TTL"),
	}
}

func (a *AuthConfig) applyDefaults() {
	if a.AccessTokenTTL <= 0 {
		a.AccessTokenTTL = 15 * time.Minute
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.Store.Backend {
	case BackendMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_BACKEND=memory is not allowed in production"))
		}
	case BackendPostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be memory or postgres, got %q", c.Store.Backend))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Webhook.Secret == "" {
			errs = append(errs, errors.New("PROVIDER_WEBHOOK_SECRET is required in production"))
		}
	}

	if err := c.Triage.Validate(); err != nil {
		errs = append(errs, err)
	}

	tw := c.Twilio
	if (tw.AccountSID != "" || tw.AuthToken != "" || tw.FromNumber != "") && !tw.Enabled() {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set together"))
	}
	if tw.Enabled() && c.Notify.OperatorPhone == "" {
		errs = append(errs, errors.New("NOTIFY_OPERATOR_PHONE is required when Twilio is configured"))
	}

	return joinErrors(errs)
}

func (c Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	} else if !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) UsesPostgres() bool {
	return c.Store.Backend == BackendPostgres
}

func (c Config) UsesRedis() bool {
	return c.Redis.Host != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return optionalInt(key)
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optionalFloat reports whether key was set so callers can tell 0 from unset.
func optionalFloat(key string) (float64, bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, true, nil
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
