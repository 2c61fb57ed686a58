package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/adminkit/core/registry"
)

// Snapshot is one loaded configuration and the registry built from it.
// A snapshot is never mutated after it is published.
type Snapshot struct {
	Config   *Config
	Registry *registry.Registry
}

// Holder provides thread-safe access to configuration with hot reload support.
type Holder struct {
	current  atomic.Pointer[Snapshot]
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	onChange []func(*Snapshot)
	onError  []func(error)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder creates a new config holder and loads the initial configuration.
// Every resource must normalize; a rejected resource fails startup.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return newHolder(cfg, absPath, logger)
}

// NewStaticHolder wraps an already loaded configuration. It has no file,
// so Reload and WatchFile fail.
func NewStaticHolder(cfg *Config, logger zerolog.Logger) (*Holder, error) {
	return newHolder(cfg, "", logger)
}

func newHolder(cfg *Config, path string, logger zerolog.Logger) (*Holder, error) {
	snap, err := snapshot(cfg)
	if err != nil {
		return nil, err
	}

	h := &Holder{
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	h.current.Store(snap)
	return h, nil
}

func snapshot(cfg *Config) (*Snapshot, error) {
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return &Snapshot{Config: cfg, Registry: reg}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	return h.current.Load().Config
}

// Snapshot returns the current configuration and registry.
func (h *Holder) Snapshot() *Snapshot {
	return h.current.Load()
}

// Path returns the watched config file, or "" for a static holder.
func (h *Holder) Path() string {
	return h.path
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	if h.path == "" {
		return fmt.Errorf("reload config: no config file")
	}

	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		h.notifyError(err)
		return fmt.Errorf("reload config: %w", err)
	}

	snap, err := snapshot(newCfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		h.notifyError(err)
		return fmt.Errorf("reload config: %w", err)
	}

	old := h.current.Swap(snap)

	// Log what changed
	h.logChanges(old, snap)

	h.mu.Lock()
	listeners := append([]func(*Snapshot){}, h.onChange...)
	h.mu.Unlock()

	// Notify listeners
	for _, fn := range listeners {
		fn(snap)
	}

	h.logger.Info().Int("resources", snap.Registry.Len()).Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnError registers a callback to be called when a reload fails.
func (h *Holder) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = append(h.onError, fn)
}

func (h *Holder) notifyError(err error) {
	h.mu.Lock()
	listeners := append([]func(error){}, h.onError...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(err)
	}
}

// WatchFile starts watching the config file, and resources_dir when set,
// for changes. Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	if h.path == "" {
		return fmt.Errorf("watch config: no config file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	if rd := h.resourcesDir(); rd != "" && rd != dir {
		if err := watcher.Add(rd); err != nil {
			watcher.Close()
			return fmt.Errorf("watch resources_dir: %w", err)
		}
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) resourcesDir() string {
	rd := h.Get().ResourcesDir
	if rd == "" {
		return ""
	}
	abs, err := filepath.Abs(rd)
	if err != nil {
		return rd
	}
	return abs
}

// relevant reports whether a file event should trigger a reload.
func (h *Holder) relevant(name string) bool {
	if filepath.Base(name) == filepath.Base(h.path) && filepath.Dir(name) == filepath.Dir(h.path) {
		return true
	}

	rd := h.resourcesDir()
	if rd == "" || !strings.HasPrefix(name, rd+string(filepath.Separator)) {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			if !h.relevant(event.Name) {
				continue
			}

			// React to write, create (atomic save) or remove of a resource file
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Snapshot) {
	if old.Config.Title != new.Config.Title {
		h.logger.Info().
			Str("old", old.Config.Title).
			Str("new", new.Config.Title).
			Msg("title changed")
	}

	oldNames, newNames := old.Registry.Names(), new.Registry.Names()
	if strings.Join(oldNames, ",") != strings.Join(newNames, ",") {
		h.logger.Info().
			Strs("old", oldNames).
			Strs("new", newNames).
			Msg("resources changed")
	}

	for _, field := range NonReloadableFields() {
		if nonReloadable(old.Config, field) != nonReloadable(new.Config, field) {
			h.logger.Warn().Str("field", field).Msg("change requires restart to take effect")
		}
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"title",
		"resources",
		"resources_dir",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"server.base_path",
		"backend.url",
		"auth.mode",
		"logging.level",
	}
}

func nonReloadable(cfg *Config, field string) string {
	switch field {
	case "server.host":
		return cfg.Server.Host
	case "server.port":
		return fmt.Sprint(cfg.Server.Port)
	case "server.base_path":
		return cfg.Server.BasePath
	case "backend.url":
		return cfg.Backend.URL
	case "auth.mode":
		return cfg.Auth.Mode
	case "logging.level":
		return cfg.Logging.Level
	}
	return ""
}
