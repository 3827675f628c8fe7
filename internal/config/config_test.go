package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:8088" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if len(cfg.BindCandidates) != 2 {
		t.Fatalf("BindCandidates = %v", cfg.BindCandidates)
	}
	if !cfg.Headless || !cfg.BindAutoFallback {
		t.Fatalf("boolean defaults wrong: %+v", cfg)
	}
	if cfg.NavTimeout != 60*time.Second || cfg.SettleWindow != 500*time.Millisecond {
		t.Fatalf("duration defaults wrong: %+v", cfg)
	}
	if cfg.MaxInflight != 2 {
		t.Fatalf("MaxInflight = %d", cfg.MaxInflight)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANALYZER_BIND_ADDR", "0.0.0.0:9000")
	t.Setenv("ANALYZER_BIND_CANDIDATES", "0.0.0.0:9001 , 0.0.0.0:9002")
	t.Setenv("ANALYZER_NAV_TIMEOUT_MS", "15000")
	t.Setenv("ANALYZER_HEADLESS", "false")
	t.Setenv("ANALYZER_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != "0.0.0.0:9000" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if len(cfg.BindCandidates) != 2 || cfg.BindCandidates[0] != "0.0.0.0:9001" {
		t.Fatalf("BindCandidates = %v", cfg.BindCandidates)
	}
	if cfg.NavTimeout != 15*time.Second {
		t.Fatalf("NavTimeout = %v", cfg.NavTimeout)
	}
	if cfg.Headless {
		t.Fatal("Headless override ignored")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want lower-cased", cfg.LogLevel)
	}
}

func TestLoadClampsTinyTimeouts(t *testing.T) {
	t.Setenv("ANALYZER_NAV_TIMEOUT_MS", "50")
	t.Setenv("ANALYZER_EVAL_TIMEOUT_MS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NavTimeout != time.Second || cfg.EvalTimeout != time.Second {
		t.Fatalf("timeouts not clamped: nav=%v eval=%v", cfg.NavTimeout, cfg.EvalTimeout)
	}
}
