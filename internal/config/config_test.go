package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	for _, key := range []string{"APP_PORT", "JWT_TTL_HOURS", "MAIL_PORT", "MOMO_ENDPOINT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", cfg.AppPort)
	}
	if cfg.TokenExpires != 168*time.Hour {
		t.Errorf("TokenExpires = %v, want 168h", cfg.TokenExpires)
	}
	// net/smtp only speaks STARTTLS, so the default must be the submission
	// port, not the implicit-TLS port 465.
	if cfg.MailPort != "587" {
		t.Errorf("MailPort = %q, want 587", cfg.MailPort)
	}
	if cfg.MomoEndpoint == "" {
		t.Error("MomoEndpoint default is empty")
	}
}
