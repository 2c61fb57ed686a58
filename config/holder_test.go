package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/adminkit/config"
)

func validConfig() string {
	return `
title: "Admin"
backend:
  url: "http://localhost:3000"
resources:
  - name: users
    endpoint: /api/users
`
}

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Backend.URL != "http://localhost:3000" {
		t.Errorf("Backend.URL = %s, want http://localhost:3000", got.Backend.URL)
	}

	snap := h.Snapshot()
	if _, ok := snap.Registry.Get("users"); !ok {
		t.Error("users not in registry")
	}
}

func TestNewHolder_RejectsBadResource(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: "http://localhost:3000"
resources:
  - name: users
    endpoints:
      list: {path: /api/users, method: FETCH}
`)

	if _, err := config.NewHolder(path, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid resource")
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	before := h.Snapshot()

	writeFile(t, path, `
title: "Renamed"
backend:
  url: "http://localhost:3000"
resources:
  - name: users
    endpoint: /api/users
  - name: orders
    endpoint: /api/orders
`)

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	after := h.Snapshot()
	if after.Config.Title != "Renamed" {
		t.Errorf("Title = %s, want Renamed", after.Config.Title)
	}
	if after.Registry.Len() != 2 {
		t.Errorf("registry len = %d, want 2", after.Registry.Len())
	}

	// The old snapshot is untouched
	if before.Config.Title != "Admin" || before.Registry.Len() != 1 {
		t.Errorf("old snapshot changed: title=%s len=%d", before.Config.Title, before.Registry.Len())
	}
}

func TestHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var reloadErrs []error
	h.OnError(func(err error) { reloadErrs = append(reloadErrs, err) })

	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "backend: [broken"},
		{"invalid config", `title: "no backend"`},
		{"invalid resource", `
backend:
  url: "http://localhost:3000"
resources:
  - name: users
  - name: users
`},
	}

	for _, tt := range tests {
		writeFile(t, path, tt.content)
		if err := h.Reload(); err == nil {
			t.Errorf("%s: expected reload error", tt.name)
		}
		if h.Get().Backend.URL != "http://localhost:3000" {
			t.Errorf("%s: config changed after failed reload", tt.name)
		}
		if _, ok := h.Snapshot().Registry.Get("users"); !ok {
			t.Errorf("%s: registry changed after failed reload", tt.name)
		}
	}

	if len(reloadErrs) != len(tests) {
		t.Errorf("OnError called %d times, want %d", len(reloadErrs), len(tests))
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var got []*config.Snapshot
	h.OnChange(func(s *config.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	})

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("OnChange called %d times, want 1", len(got))
	}
	if got[0] != h.Snapshot() {
		t.Error("OnChange received a different snapshot than the one published")
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan *config.Snapshot, 16)
	h.OnChange(func(s *config.Snapshot) {
		select {
		case changed <- s:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	writeFile(t, path, `
title: "Watched"
backend:
  url: "http://localhost:3000"
`)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changed:
			if s.Config.Title == "Watched" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for file watch reload")
		}
	}
}

func TestHolder_WatchResourcesDir(t *testing.T) {
	dir := t.TempDir()
	resDir := filepath.Join(dir, "resources")
	if err := os.Mkdir(resDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "adminkit.yaml")
	writeFile(t, path, `
backend:
  url: "http://localhost:3000"
resources_dir: resources
`)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan *config.Snapshot, 16)
	h.OnChange(func(s *config.Snapshot) {
		select {
		case changed <- s:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	writeFile(t, filepath.Join(resDir, "orders.yaml"), "name: orders\nendpoint: /api/orders\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changed:
			if _, ok := s.Registry.Get("orders"); ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for resources_dir reload")
		}
	}
}

func TestStaticHolder(t *testing.T) {
	t.Setenv("ADMINKIT_BACKEND_URL", "http://env")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	h, err := config.NewStaticHolder(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStaticHolder error: %v", err)
	}
	defer h.Stop()

	if h.Path() != "" {
		t.Errorf("Path = %s, want empty", h.Path())
	}
	if err := h.Reload(); err == nil {
		t.Error("Reload on static holder should fail")
	}
	if err := h.WatchFile(); err == nil {
		t.Error("WatchFile on static holder should fail")
	}
}

func TestHolder_StopIdempotent(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestReloadableFields(t *testing.T) {
	reloadable := make(map[string]bool)
	for _, f := range config.ReloadableFields() {
		reloadable[f] = true
	}
	for _, f := range config.NonReloadableFields() {
		if reloadable[f] {
			t.Errorf("%s is listed as both reloadable and non-reloadable", f)
		}
	}
	if !reloadable["resources"] {
		t.Error("resources must be reloadable")
	}
}
