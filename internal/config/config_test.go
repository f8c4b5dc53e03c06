package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:19000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.UpstreamConnectTimeout != 10*time.Second {
		t.Errorf("UpstreamConnectTimeout = %v", cfg.UpstreamConnectTimeout)
	}
	if cfg.ForceResponses {
		t.Errorf("ForceResponses should default to false")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MODEL_ROUTER_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("MODEL_ROUTER_FORCE_RESPONSES", "true")
	t.Setenv("MODEL_ROUTER_MODEL_CLASSIFICATION_OVERRIDES", "my-model=responses,other=chat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if !cfg.ForceResponses {
		t.Errorf("ForceResponses should be true")
	}
	if cfg.ModelClassificationOverrides["my-model"] != "responses" {
		t.Errorf("override missing: %+v", cfg.ModelClassificationOverrides)
	}
	if cfg.ModelClassificationOverrides["other"] != "chat" {
		t.Errorf("override missing: %+v", cfg.ModelClassificationOverrides)
	}
}
