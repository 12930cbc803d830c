package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Proxy.SocksListenAddr() != "localhost:1080" {
		t.Fatalf("got %q, want default socks listen addr", cfg.Proxy.SocksListenAddr())
	}
	if cfg.CA.KeyPath == "" || cfg.CA.CertPath == "" {
		t.Fatal("expected default CA paths to be populated")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Proxy.SocksListen = "0.0.0.0:1081"
	cfg.Targets.Intercept = []string{"example.com"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Proxy.SocksListen != "0.0.0.0:1081" {
		t.Fatalf("got %q, want 0.0.0.0:1081", loaded.Proxy.SocksListen)
	}
	if len(loaded.Targets.Intercept) != 1 || loaded.Targets.Intercept[0] != "example.com" {
		t.Fatalf("got targets %+v", loaded.Targets)
	}
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("SKUNK_SOCKS_LISTEN", "127.0.0.1:9999")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Proxy.SocksListen != "127.0.0.1:9999" {
		t.Fatalf("got %q, want env override", cfg.Proxy.SocksListen)
	}
}

func TestProxyConfigSocksListenAddrFallsBackToHostPort(t *testing.T) {
	c := ProxyConfig{Host: "0.0.0.0", Port: 2080}
	if got := c.SocksListenAddr(); got != "0.0.0.0:2080" {
		t.Fatalf("got %q, want 0.0.0.0:2080", got)
	}
}
