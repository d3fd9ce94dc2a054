package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	return f[ref], nil
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoad_YAMLEnvAndDefaults(t *testing.T) {
	root := writeYAML(t, `
http:
  listen_addr: "127.0.0.1:9000"
database:
  dsn: "onatrix@tcp(127.0.0.1:3306)/onatrix?parseTime=true"
forms:
  callback:
    policy: sweden
    options:
      - value: support
        label: Support
`)
	t.Setenv("ONATRIX_HTTP__FORCE_HTTPS", "true")

	cfg, err := LoadWith(root, nil)
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.HTTP.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if !cfg.HTTP.ForceHTTPS {
		t.Error("env override for force_https not applied")
	}
	if cfg.HTTP.ReadTimeout != 10*time.Second {
		t.Errorf("read_timeout default = %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Forms.Callback.Policy != "sweden" {
		t.Errorf("policy = %q", cfg.Forms.Callback.Policy)
	}
	if len(cfg.Forms.Callback.Options) != 1 || cfg.Forms.Callback.Options[0].Value != "support" {
		t.Errorf("options = %#v", cfg.Forms.Callback.Options)
	}
	if cfg.Paths.Root != root {
		t.Errorf("root = %q, want %q", cfg.Paths.Root, root)
	}
	if Get() != cfg {
		t.Error("Get did not return the cached config")
	}
}

func TestLoad_ResolvesVaultReferences(t *testing.T) {
	root := writeYAML(t, `
database:
  dsn: "onatrix@tcp(127.0.0.1:3306)/onatrix"
  password: "vault:secret/onatrix#db_password"
`)
	cfg, err := LoadWith(root, fakeResolver{"secret/onatrix#db_password": "hunter2"})
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.Database.Password != "hunter2" {
		t.Fatalf("password = %q, want resolved secret", cfg.Database.Password)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	root := writeYAML(t, `
http:
  listen_addr: ":8080"
forms:
  callback:
    notify:
      webhook_url: "not a url"
`)
	_, err := LoadWith(root, nil)
	if err == nil {
		t.Fatal("expected validation error (missing dsn, bad webhook url)")
	}
	for _, key := range []string{"database.dsn: required", "forms.callback.notify.webhook_url: url"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %q", err, key)
		}
	}
}
