package config

import "testing"

func TestDefaultEnv(t *testing.T) {
	cfg := DefaultEnv()

	if cfg.Frame.Width != 1920 || cfg.Frame.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Frame.Width, cfg.Frame.Height)
	}
	if cfg.Frame.MaxQueueSize != 10 {
		t.Errorf("expected MaxQueueSize 10, got %d", cfg.Frame.MaxQueueSize)
	}
	if cfg.Event.UnsafeRatio != 0.7 {
		t.Errorf("expected UnsafeRatio 0.7, got %f", cfg.Event.UnsafeRatio)
	}
	if cfg.Patrol.GridX != 4 || cfg.Patrol.GridY != 3 {
		t.Errorf("expected grid 4x3, got %dx%d", cfg.Patrol.GridX, cfg.Patrol.GridY)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadEnv_EmptyPath(t *testing.T) {
	cfg, err := LoadEnv("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestLoadEnv_NonExistentFile(t *testing.T) {
	cfg, err := LoadEnv("/nonexistent/path/env.toml")
	if err != nil {
		t.Fatalf("unexpected error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for non-existent file")
	}
}

func TestEnvConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EnvConfig)
		wantErr bool
	}{
		{"valid defaults", func(c *EnvConfig) {}, false},
		{"zero width", func(c *EnvConfig) { c.Frame.Width = 0 }, true},
		{"zero queue size", func(c *EnvConfig) { c.Frame.MaxQueueSize = 0 }, true},
		{"bad unsafe ratio", func(c *EnvConfig) { c.Event.UnsafeRatio = 1.5 }, true},
		{"inverted zoom bounds", func(c *EnvConfig) { c.PTZ.MinZoom, c.PTZ.MaxZoom = 0.5, 0.1 }, true},
		{"zero grid", func(c *EnvConfig) { c.Patrol.GridX = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEnv()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
