package marketapi

import (
	"testing"
	"time"
)

func TestValidateAppliesDefaults(test *testing.T) {
	test.Parallel()
	cfg := Config{SessionSigningKey: "secret"}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		test.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		test.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.SessionIssuer != "smartpay" {
		test.Fatalf("unexpected issuer: %s", cfg.SessionIssuer)
	}
	if cfg.AccessTokenTTL != time.Hour {
		test.Fatalf("unexpected ttl: %s", cfg.AccessTokenTTL)
	}
}

func TestValidateRequiresSigningKey(test *testing.T) {
	test.Parallel()
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		test.Fatalf("expected missing signing key to fail")
	}
}

func TestValidateKeepsExplicitValues(test *testing.T) {
	test.Parallel()
	cfg := Config{
		ListenAddr:        ":8081",
		AllowedOrigins:    []string{"https://example.com"},
		SessionSigningKey: "secret",
		SessionIssuer:     "custom",
		AccessTokenTTL:    2 * time.Hour,
		SuccessDelay:      0,
	}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate: %v", err)
	}
	if cfg.ListenAddr != ":8081" || cfg.SessionIssuer != "custom" {
		test.Fatalf("explicit values overwritten: %+v", cfg)
	}
	if cfg.SuccessDelay != 0 {
		test.Fatalf("zero success delay must be preserved, got %s", cfg.SuccessDelay)
	}
}

func TestParseAllowedOrigins(test *testing.T) {
	test.Parallel()
	origins := ParseAllowedOrigins(" http://a.example , ,http://b.example ")
	if len(origins) != 2 || origins[0] != "http://a.example" || origins[1] != "http://b.example" {
		test.Fatalf("unexpected origins: %v", origins)
	}
	if got := ParseAllowedOrigins("  "); len(got) != 0 {
		test.Fatalf("expected empty slice, got %v", got)
	}
}

func TestChatTokenRoundTrip(test *testing.T) {
	test.Parallel()
	cfg := Config{SessionSigningKey: "secret", SessionIssuer: "smartpay", AccessTokenTTL: time.Hour}
	signed, err := issueChatToken(cfg, "session-1", "agent-fin-1", time.Now())
	if err != nil {
		test.Fatalf("issue: %v", err)
	}
	subject, err := parseChatToken(cfg, signed)
	if err != nil {
		test.Fatalf("parse: %v", err)
	}
	if subject != "session-1" {
		test.Fatalf("expected session-1, got %s", subject)
	}

	wrongKey := Config{SessionSigningKey: "other", SessionIssuer: "smartpay", AccessTokenTTL: time.Hour}
	if _, err := parseChatToken(wrongKey, signed); err == nil {
		test.Fatalf("expected wrong key to fail validation")
	}
}
