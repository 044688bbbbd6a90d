package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg := Load()
	if cfg.Checkout.ShippingFee != 500 {
		t.Fatalf("unexpected shipping fee: %d", cfg.Checkout.ShippingFee)
	}
	if cfg.Backend.Timeout() != 10*time.Second {
		t.Fatalf("unexpected backend timeout: %s", cfg.Backend.Timeout())
	}
	if cfg.Poller.Interval() != 8*time.Second {
		t.Fatalf("unexpected poller interval: %s", cfg.Poller.Interval())
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected storage driver: %s", cfg.Storage.Driver)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := []byte("backend:\n  base_url: https://books.example.edu/api\n  timeout_seconds: 4\npoller:\n  interval_seconds: 10\n")
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yml"), content, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg := Load()
	if cfg.Backend.BaseURL != "https://books.example.edu/api" {
		t.Fatalf("unexpected base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout() != 4*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Backend.Timeout())
	}
	if cfg.Poller.Interval() != 10*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.Poller.Interval())
	}
}

func TestDurationFallbacks(t *testing.T) {
	if got := (PollerConfig{}).Interval(); got != 8*time.Second {
		t.Fatalf("unexpected poller fallback: %s", got)
	}
	if got := (CheckoutConfig{}).PendingOrderTTL(); got != 30*time.Minute {
		t.Fatalf("unexpected ttl fallback: %s", got)
	}
}
