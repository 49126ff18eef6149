package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultNeedsOnlyEndpoint(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() succeeded without an endpoint")
	}

	cfg.Endpoint = "ws://127.0.0.1:27015/ws"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roundlink.yaml")
	yaml := "endpoint: ws://example:1/ws\nmtu: 1400\nfinalize_timeout: 45s\npreferred_team: b\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ROUNDLINK_PLAYER_NAME", "Kastner")
	t.Setenv("ROUNDLINK_FINALIZE_RESEND_INTERVAL", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.Endpoint != "ws://example:1/ws" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.MTU != 1400 {
		t.Errorf("MTU = %d, want 1400", cfg.MTU)
	}
	if cfg.FinalizeTimeout != 45*time.Second {
		t.Errorf("FinalizeTimeout = %v, want 45s", cfg.FinalizeTimeout)
	}
	if cfg.FinalizeResendInterval != 250*time.Millisecond {
		t.Errorf("FinalizeResendInterval = %v, want 250ms", cfg.FinalizeResendInterval)
	}
	if cfg.PlayerName != "Kastner" {
		t.Errorf("PlayerName = %q, want env override", cfg.PlayerName)
	}
	if cfg.PreferredTeam != TeamB {
		t.Errorf("PreferredTeam = %q, want %q", cfg.PreferredTeam, TeamB)
	}
	// Untouched fields keep their defaults.
	if cfg.QueueRetryInterval != Default().QueueRetryInterval {
		t.Errorf("QueueRetryInterval = %v, want default", cfg.QueueRetryInterval)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("ROUNDLINK_TICK_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() accepted an unparsable duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"small mtu", func(c *Config) { c.MTU = 100 }},
		{"huge margin", func(c *Config) { c.MTUSafetyMargin = c.MTU }},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }},
		{"zero finalize timeout", func(c *Config) { c.FinalizeTimeout = 0 }},
		{"unknown team", func(c *Config) { c.PreferredTeam = "c" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Endpoint = "ws://x/ws"
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

func TestChatBudget(t *testing.T) {
	cfg := Default()
	if got, want := cfg.ChatBudget(), cfg.MTU-cfg.MTUSafetyMargin; got != want {
		t.Errorf("ChatBudget() = %d, want %d", got, want)
	}
}
