package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/adminkit/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("TEST_TOKEN_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	content := `
title: "Ops Console"

server:
  host: "127.0.0.1"
  port: 9090
  base_path: "/console/"

backend:
  url: "http://localhost:3000"
  timeout: 15s
  api_key: "secret"
  headers:
    X-Tenant: acme

auth:
  mode: "token"
  token_hash: "${TEST_TOKEN_HASH}"
  redirect_to: "/login"

resources:
  - name: users
    endpoint: /api/admin/users
  - name: orders
    endpoint: /api/orders
`

	cfg := writeAndLoad(t, content)

	if cfg.Title != "Ops Console" {
		t.Errorf("Title = %s, want Ops Console", cfg.Title)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
	if cfg.Server.BasePath != "/console" {
		t.Errorf("BasePath = %s, want /console", cfg.Server.BasePath)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("Backend.Timeout = %v, want 15s", cfg.Backend.Timeout)
	}
	if cfg.Backend.Headers["X-Tenant"] != "acme" {
		t.Errorf("Backend.Headers = %v", cfg.Backend.Headers)
	}
	if cfg.Auth.Mode != config.AuthToken || cfg.Auth.RedirectTo != "/login" || cfg.Auth.TokenHash != "$2a$10$abcdefghijklmnopqrstuv" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if len(cfg.Resources) != 2 || cfg.Resources[1].Name != "orders" {
		t.Fatalf("Resources = %+v", cfg.Resources)
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("BuildRegistry error: %v", err)
	}
	if got := strings.Join(reg.Names(), ","); got != "users,orders" {
		t.Errorf("registry names = %s", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, `
backend:
  url: "http://localhost:3000"
`)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Title", cfg.Title, "Admin"},
		{"Server.Host", cfg.Server.Host, "0.0.0.0"},
		{"Server.Port", cfg.Server.Port, 8080},
		{"Server.ReadTimeout", cfg.Server.ReadTimeout, 30 * time.Second},
		{"Server.WriteTimeout", cfg.Server.WriteTimeout, 60 * time.Second},
		{"Server.BasePath", cfg.Server.BasePath, "/admin"},
		{"Backend.Timeout", cfg.Backend.Timeout, 30 * time.Second},
		{"Backend.ForwardHeaders", strings.Join(cfg.Backend.ForwardHeaders, ","), "Authorization,Cookie"},
		{"Auth.Mode", cfg.Auth.Mode, config.AuthNone},
		{"Auth.Remote.Timeout", cfg.Auth.Remote.Timeout, 5 * time.Second},
		{"Logging.Level", cfg.Logging.Level, "info"},
		{"Logging.Format", cfg.Logging.Format, "json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("default %s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_RootBasePath(t *testing.T) {
	cfg := writeAndLoad(t, `
server:
  base_path: "/"
backend:
  url: "http://localhost:3000"
`)
	if cfg.Server.BasePath != "" {
		t.Errorf("BasePath = %q, want empty", cfg.Server.BasePath)
	}
}

func TestLoad_EmptyForwardHeaders(t *testing.T) {
	cfg := writeAndLoad(t, `
backend:
  url: "http://localhost:3000"
  forward_headers: []
`)
	if cfg.Backend.ForwardHeaders == nil || len(cfg.Backend.ForwardHeaders) != 0 {
		t.Errorf("ForwardHeaders = %v, want explicit empty list", cfg.Backend.ForwardHeaders)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BACKEND_HOST", "backend.internal")

	cfg := writeAndLoad(t, `
backend:
  url: "http://${TEST_BACKEND_HOST}:3000"
`)
	if cfg.Backend.URL != "http://backend.internal:3000" {
		t.Errorf("Backend.URL = %s", cfg.Backend.URL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADMINKIT_TITLE", "From Env")
	t.Setenv("ADMINKIT_SERVER_PORT", "9999")
	t.Setenv("ADMINKIT_SERVER_BASE_PATH", "/ops")
	t.Setenv("ADMINKIT_BACKEND_URL", "http://env:4000")
	t.Setenv("ADMINKIT_BACKEND_TIMEOUT", "5s")
	t.Setenv("ADMINKIT_AUTH_MODE", "jwt")
	t.Setenv("ADMINKIT_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("ADMINKIT_LOG_LEVEL", "debug")

	cfg := writeAndLoad(t, `
title: "From File"
server:
  port: 8000
backend:
  url: "http://file:3000"
`)

	if cfg.Title != "From Env" {
		t.Errorf("Title = %s", cfg.Title)
	}
	if cfg.Server.Port != 9999 || cfg.Server.BasePath != "/ops" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Backend.URL != "http://env:4000" || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if cfg.Auth.Mode != config.AuthJWT || cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s", cfg.Logging.Level)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("ADMINKIT_SERVER_PORT", "not-a-number")

	cfg := writeAndLoad(t, `
backend:
  url: "http://localhost:3000"
`)
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "missing backend url",
			content: `title: x`,
			want:    []string{"backend.url is required"},
		},
		{
			name: "unknown auth mode",
			content: `
backend: {url: "http://x"}
auth: {mode: ldap}`,
			want: []string{"auth.mode must be one of"},
		},
		{
			name: "token without hash",
			content: `
backend: {url: "http://x"}
auth: {mode: token}`,
			want: []string{"auth.token_hash is required"},
		},
		{
			name: "jwt without secret",
			content: `
backend: {url: "http://x"}
auth: {mode: jwt}`,
			want: []string{"auth.jwt_secret is required"},
		},
		{
			name: "remote without url",
			content: `
backend: {url: "http://x"}
auth: {mode: remote}`,
			want: []string{"auth.remote.url is required"},
		},
		{
			name: "bad logging",
			content: `
backend: {url: "http://x"}
logging: {level: verbose, format: xml}`,
			want: []string{"logging.level", "logging.format"},
		},
		{
			name: "unknown module",
			content: `
backend: {url: "http://x"}
modules: [metrics, tracing]`,
			want: []string{`unknown module "tracing"`},
		},
		{
			name: "all problems together",
			content: `
auth: {mode: token}
modules: [metrics, metrics]`,
			want: []string{"backend.url is required", "auth.token_hash is required", `module "metrics" listed twice`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load("/nonexistent/adminkit.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "backend: [unclosed")
	if _, err := config.Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_ResourcesDir(t *testing.T) {
	dir := t.TempDir()
	resDir := filepath.Join(dir, "resources")
	if err := os.Mkdir(resDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(resDir, "orders.yaml"), `
name: orders
endpoint: /api/orders
---
name: invoices
endpoint: /api/invoices
`)

	path := filepath.Join(dir, "adminkit.yaml")
	writeFile(t, path, `
backend:
  url: "http://localhost:3000"
resources_dir: resources
resources:
  - name: users
    endpoint: /api/users
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	var names []string
	for _, r := range cfg.Resources {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "users,orders,invoices" {
		t.Errorf("resources = %s, want users,orders,invoices", got)
	}
	if cfg.ResourcesDir != resDir {
		t.Errorf("ResourcesDir = %s, want %s", cfg.ResourcesDir, resDir)
	}
}

func TestBuildRegistry_ReportsEveryRejectedResource(t *testing.T) {
	cfg := writeAndLoad(t, `
backend:
  url: "http://localhost:3000"
resources:
  - name: users
    endpoint: /api/users
  - name: ""
  - name: users
    endpoint: /api/other
`)

	reg, err := cfg.BuildRegistry()
	if err == nil {
		t.Fatal("expected setup error")
	}
	if reg.Len() != 1 {
		t.Errorf("registry len = %d, want 1", reg.Len())
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file wins", func(t *testing.T) {
		path := writeConfig(t, `backend: {url: "http://file"}`)
		cfg, err := config.LoadWithFallback(path)
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if cfg.Backend.URL != "http://file" {
			t.Errorf("Backend.URL = %s", cfg.Backend.URL)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("ADMINKIT_BACKEND_URL", "http://env")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if cfg.Backend.URL != "http://env" || cfg.Title != "Admin" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		t.Setenv("ADMINKIT_BACKEND_URL", "")
		if _, err := config.LoadWithFallback(""); err == nil {
			t.Error("expected error")
		}
	})
}

// -----------------------------------------------------------------------------
// Modules
// -----------------------------------------------------------------------------

func TestModules_TaggedEntries(t *testing.T) {
	cfg := writeAndLoad(t, `
backend:
  url: "http://localhost:3000"
modules:
  - metrics
  - [demo, {path: /playground, dsn: demo.db}]
`)

	if len(cfg.Modules) != 2 {
		t.Fatalf("len(Modules) = %d, want 2", len(cfg.Modules))
	}
	if !cfg.Modules.HasModule(config.ModuleMetrics) {
		t.Error("metrics module not enabled")
	}

	demo, ok := cfg.Modules.Lookup(config.ModuleDemo)
	if !ok {
		t.Fatal("demo module not found")
	}
	if got := demo.Option("path", "/demo"); got != "/playground" {
		t.Errorf("path option = %s", got)
	}
	if got := demo.Option("missing", "fallback"); got != "fallback" {
		t.Errorf("missing option = %s", got)
	}

	if cfg.Modules.HasModule("tracing") {
		t.Error("HasModule(tracing) = true")
	}
}

func TestModuleEntry_Malformed(t *testing.T) {
	tests := []string{
		`modules: [[demo]]`,
		`modules: [[demo, {}, extra]]`,
		`modules: [{name: demo}]`,
		`modules: [[demo, notamap]]`,
	}
	for _, content := range tests {
		var cfg config.Config
		if err := yaml.Unmarshal([]byte(content), &cfg); err == nil {
			t.Errorf("%s: expected error", content)
		}
	}
}

func TestModuleEntry_MarshalRoundTrip(t *testing.T) {
	in := config.Modules{
		{Name: "metrics"},
		{Name: "demo", Options: map[string]any{"path": "/demo"}},
	}

	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var out config.Modules
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(out) != 2 || out[0].Name != "metrics" || out[1].Option("path", "") != "/demo" {
		t.Errorf("round trip = %+v (yaml: %s)", out, data)
	}
}

func TestModuleEntry_EmptyOptionsKeepSequenceForm(t *testing.T) {
	var in config.Modules
	if err := yaml.Unmarshal([]byte("- metrics\n- [demo, {}]\n"), &in); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if in[0].WithOptions {
		t.Error("bare name decoded with WithOptions")
	}
	if !in[1].WithOptions || in[1].Options == nil || len(in[1].Options) != 0 {
		t.Errorf("[demo, {}] decoded as %+v", in[1])
	}

	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var out config.Modules
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(out) != 2 || out[0].WithOptions || !out[1].WithOptions || out[1].Name != "demo" {
		t.Errorf("round trip = %+v (yaml: %s)", out, data)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adminkit.yaml")
	writeFile(t, path, content)
	return path
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}
