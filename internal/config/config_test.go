package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.AgentCount != 20 {
		t.Errorf("AgentCount = %d, want 20", cfg.AgentCount)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ARENA_PORT", "9000")
	t.Setenv("ARENA_AGENTS", "8")
	t.Setenv("ARENA_SEED", "0")
	t.Setenv("ARENA_ADMIN_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.AgentCount != 8 || cfg.Seed != 0 || cfg.AdminKey != "secret" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"ARENA_AGENTS":         "1",
		"ARENA_FIELD_SIZE":     "0",
		"ARENA_ROUND_INTERVAL": "-3",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", key, val)
			}
		})
	}
}
