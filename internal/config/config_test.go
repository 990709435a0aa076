package config

import (
	"strings"
	"testing"
	"time"

	"pulsecall/internal/triage"
)

func validLocal() Config {
	c := Config{
		App:    AppConfig{Env: "local", Port: 8080},
		Store:  StoreConfig{Backend: BackendMemory},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Triage: triage.DefaultThresholds(),
	}
	c.applyDefaults()
	return c
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_MemoryBackendNeedsNoDatabase(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.UsesPostgres() || c.UsesRedis() {
		t.Fatalf("expected memory-only setup")
	}
}

func TestValidate_PostgresBackendRequiresDB(t *testing.T) {
	c := validLocal()
	c.Store.Backend = BackendPostgres
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_HOST is required") {
		t.Fatalf("expected DB_HOST error, got %v", err)
	}

	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "pulsecall", SSLMode: "disable"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_ProductionRequiresSSLModeAndWebhookSecret(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		Store: StoreConfig{Backend: BackendPostgres},
		DB:    DBConfig{Host: "db", User: "postgres", Password: "x", Name: "pulsecall"},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "pulsecall", JWTAudience: "ops"},
	}
	c.applyDefaults()
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
	for _, want := range []string{"DB_SSLMODE", "PROVIDER_WEBHOOK_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	c := Config{}
	c.applyDefaults()
	if c.Store.Backend != BackendMemory || c.DB.SSLMode != "disable" || c.DB.Port != 5432 {
		t.Fatalf("unexpected store defaults: %+v %+v", c.Store, c.DB)
	}
	if c.Retry.Delay != 15*time.Minute || c.Redis.LockTTL != 30*time.Second {
		t.Fatalf("unexpected retry/lock defaults")
	}
	if c.Notify.OnTranscriptFlags {
		t.Fatalf("transcript flag notifications must default to off")
	}
}

func TestValidate_TwilioSettingsTravelTogether(t *testing.T) {
	c := validLocal()
	c.Twilio.AccountSID = "AC1"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for partial Twilio config")
	}

	c.Twilio = TwilioConfig{AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550000000"}
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "NOTIFY_OPERATOR_PHONE") {
		t.Fatalf("expected operator phone error, got %v", err)
	}
	c.Notify.OperatorPhone = "+15551111111"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRIAGE_SPEECH_PROBABILITY_FLOOR", "0.6")
	t.Setenv("NOTIFY_ON_TRANSCRIPT_FLAGS", "true")
	t.Setenv("RETRY_DELAY", "2m")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr() != ":9090" || c.Triage.SpeechProbabilityFloor != 0.6 || !c.Notify.OnTranscriptFlags || c.Retry.Delay != 2*time.Minute {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoad_TriageDefaultsOnlyFillUnsetValues(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRIAGE_SILENT_SPEECH_CEILING", "0")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Triage.SilentSpeechCeiling != 0 {
		t.Fatalf("explicit 0 ceiling was replaced: %+v", c.Triage)
	}
	d := triage.DefaultThresholds()
	if c.Triage.SilenceRatioCritical != d.SilenceRatioCritical || c.Triage.SpeechProbabilityFloor != d.SpeechProbabilityFloor {
		t.Fatalf("unset thresholds must keep defaults: %+v", c.Triage)
	}
}

func TestLoad_ReportsParseErrors(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "not-a-port")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRIAGE_SILENCE_RATIO_CRITICAL", "lots")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, want := range []string{"APP_PORT", "TRIAGE_SILENCE_RATIO_CRITICAL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestLoadAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadAuth(); err == nil {
		t.Fatalf("expected missing secret error")
	}

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	a, err := LoadAuth()
	if err != nil {
		t.Fatalf("load auth: %v", err)
	}
	if a.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("unexpected ttls: %+v", a)
	}
}
