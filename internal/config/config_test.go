package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

func TestLoadFileConfig_Missing(t *testing.T) {
	cfg, err := LoadFileConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if cfg.Max != 0 || len(cfg.Profiles) != 0 {
		t.Errorf("expected zero-value config, got %+v", cfg)
	}
}

func TestLoadFileConfig_Invalid(t *testing.T) {
	dir := writeConfig(t, "max = [broken")
	if _, err := LoadFileConfig(dir); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestResolve_ProfileAndGlobals(t *testing.T) {
	dir := writeConfig(t, `
max = 25
proto = "/protos/global"
db = "/data/peeks.db"

[profiles.prod]
connection_string = "Endpoint=sb://prod/;SharedAccessKeyName=k;SharedAccessKey=s"
queue = "orders"

[profiles.staging]
connection_string = "Endpoint=sb://staging/;SharedAccessKeyName=k;SharedAccessKey=s"
proto = "/protos/staging"
`)
	fc, err := LoadFileConfig(dir)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}

	cfg := fc.Resolve("prod", dir)
	if cfg.ConnectionString != "Endpoint=sb://prod/;SharedAccessKeyName=k;SharedAccessKey=s" {
		t.Errorf("ConnectionString = %q", cfg.ConnectionString)
	}
	if cfg.Queue != "orders" {
		t.Errorf("Queue = %q, want orders", cfg.Queue)
	}
	if cfg.Max != 25 {
		t.Errorf("Max = %d, want 25", cfg.Max)
	}
	if cfg.ProtoPath != "/protos/global" {
		t.Errorf("ProtoPath = %q, want global fallback", cfg.ProtoPath)
	}
	if cfg.DBPath != "/data/peeks.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}

	staging := fc.Resolve("staging", dir)
	if staging.ProtoPath != "/protos/staging" {
		t.Errorf("profile proto override not applied: %q", staging.ProtoPath)
	}
}

func TestResolve_DefaultMax(t *testing.T) {
	cfg := (FileConfig{}).Resolve("", t.TempDir())
	if cfg.Max != 50 {
		t.Errorf("Max = %d, want default 50", cfg.Max)
	}
}

func TestResolve_EnvFallback(t *testing.T) {
	t.Setenv("SERVICEBUS_CONNECTION_STRING", "Endpoint=sb://env/;SharedAccessKeyName=k;SharedAccessKey=s")
	cfg := (FileConfig{}).Resolve("", t.TempDir())
	if cfg.ConnectionString != "Endpoint=sb://env/;SharedAccessKeyName=k;SharedAccessKey=s" {
		t.Errorf("env fallback not applied: %q", cfg.ConnectionString)
	}
}

func TestResolve_ProfileBeatsEnv(t *testing.T) {
	t.Setenv("SERVICEBUS_CONNECTION_STRING", "Endpoint=sb://env/;SharedAccessKeyName=k;SharedAccessKey=s")
	fc := FileConfig{Profiles: map[string]Profile{
		"p": {ConnectionString: "Endpoint=sb://profile/;SharedAccessKeyName=k;SharedAccessKey=s"},
	}}
	cfg := fc.Resolve("p", t.TempDir())
	if cfg.ConnectionString != "Endpoint=sb://profile/;SharedAccessKeyName=k;SharedAccessKey=s" {
		t.Errorf("profile should beat env: %q", cfg.ConnectionString)
	}
}

func TestResolve_UnknownProfileUsesEnv(t *testing.T) {
	t.Setenv("SERVICEBUS_CONNECTION_STRING", "")
	t.Setenv("AZURE_SERVICEBUS_CONNECTION_STRING", "Endpoint=sb://alt/;SharedAccessKeyName=k;SharedAccessKey=s")
	fc := FileConfig{Profiles: map[string]Profile{"known": {}}}
	cfg := fc.Resolve("unknown", t.TempDir())
	if cfg.ConnectionString != "Endpoint=sb://alt/;SharedAccessKeyName=k;SharedAccessKey=s" {
		t.Errorf("secondary env var not consulted: %q", cfg.ConnectionString)
	}
}

func TestProfileNames_Sorted(t *testing.T) {
	fc := FileConfig{Profiles: map[string]Profile{
		"zeta": {}, "alpha": {}, "mid": {},
	}}
	got := fc.ProfileNames()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProfileNames = %v, want %v", got, want)
	}
}
