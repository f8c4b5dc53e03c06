// Package config loads this proxy's runtime configuration, layering literal
// defaults with environment variables via koanf, the same approach the
// teacher pack uses for its own config surfaces.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MODEL_ROUTER_"

// Config is this proxy's full runtime configuration (§6 "Configuration
// inputs", plus the ForceResponses knob SPEC_FULL §12 carries from the
// original).
type Config struct {
	ListenAddr                   string            `koanf:"listen_addr"`
	UpstreamBaseURL              string            `koanf:"upstream_base_url"`
	DefaultModelOverride         string            `koanf:"default_model_override"`
	UpstreamConnectTimeout       time.Duration     `koanf:"upstream_connect_timeout"`
	ModelClassificationOverrides map[string]string `koanf:"-"`
	ForceResponses               bool              `koanf:"force_responses"`
}

func defaults() map[string]any {
	return map[string]any{
		"listen_addr":              "127.0.0.1:19000",
		"upstream_base_url":        "https://api.openai.com",
		"default_model_override":   "",
		"upstream_connect_timeout": "10s",
		"force_responses":          false,
	}
}

// Load builds a Config from literal defaults overridden by
// MODEL_ROUTER_-prefixed environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ModelClassificationOverrides = parseOverrides(k.String("model_classification_overrides"))

	return &cfg, nil
}

// parseOverrides decodes a "modelA=chat,modelB=responses" style value into a
// map, tolerating an empty string.
func parseOverrides(raw string) map[string]string {
	overrides := make(map[string]string)
	if raw == "" {
		return overrides
	}
	for _, pair := range strings.Split(raw, ",") {
		name, flavor, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		overrides[name] = flavor
	}
	return overrides
}
