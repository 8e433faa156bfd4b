package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MAIN_HQ_STORE_ID", "")
	t.Setenv("PREVIEW_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.MainHQStoreID != "hq-ktm" {
		t.Fatalf("expected default main HQ hq-ktm, got %q", cfg.MainHQStoreID)
	}
	if cfg.PreviewTTLSeconds != 5 {
		t.Fatalf("expected default preview TTL 5, got %d", cfg.PreviewTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Address())
	}
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("PREVIEW_TTL_SECONDS", "-3")

	cfg := Load()
	if cfg.PreviewTTLSeconds != 5 {
		t.Fatalf("expected fallback TTL 5, got %d", cfg.PreviewTTLSeconds)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAIN_HQ_STORE_ID", "hq-test")
	t.Setenv("PREVIEW_TTL_SECONDS", "30")

	cfg := Load()
	if cfg.Port != "9090" || cfg.MainHQStoreID != "hq-test" || cfg.PreviewTTLSeconds != 30 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}
