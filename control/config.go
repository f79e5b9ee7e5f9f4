// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload
// propagation. Tunable sizing (max threads, table/slot width, default
// worker count) resolves through viper, from an optional config file and
// EVREACTOR_-prefixed environment variables, falling back to
// event-epoll.c's own defaults when neither is set.

package control

import (
	"errors"
	"io/fs"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Reactor sizing defaults, mirrored from internal/reactor's own constants
// (EVENT_EPOLL_TABLES/EVENT_EPOLL_SLOTS and the 32-thread cap in
// event-epoll.c).
const (
	DefaultMaxThreads       = 32
	DefaultTableWidth       = 1024
	DefaultSlotWidth        = 1024
	DefaultEventThreadCount = 4
)

// ReactorTunables is the subset of reactor.Options resolvable from config.
type ReactorTunables struct {
	MaxThreads       int
	TableWidth       int
	SlotWidth        int
	EventThreadCount int
}

// ConfigStore is a dynamic key/value map with atomic snapshot and listener
// support, backed by a viper instance so values can come from file or
// environment in addition to SetConfig.
type ConfigStore struct {
	mu        sync.RWMutex
	v         *viper.Viper
	listeners []func()
}

// NewConfigStore initializes a config store with the reactor's sizing
// defaults pre-seeded, ready for an optional file load via Load.
func NewConfigStore() *ConfigStore {
	v := viper.New()
	v.SetEnvPrefix("evreactor")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("max_threads", DefaultMaxThreads)
	v.SetDefault("table_width", DefaultTableWidth)
	v.SetDefault("slot_width", DefaultSlotWidth)
	v.SetDefault("event_thread_count", DefaultEventThreadCount)
	return &ConfigStore{v: v}
}

// Load merges values from a config file (YAML/TOML/JSON by extension) into
// the store. A missing file is not an error; unresolved keys keep their
// defaults or environment overrides.
func (cs *ConfigStore) Load(path string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.v.SetConfigFile(path)
	if err := cs.v.ReadInConfig(); err != nil {
		// An explicit SetConfigFile path reports a missing file as a plain
		// fs.ErrNotExist, not as viper.ConfigFileNotFoundError.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cs.dispatchReloadLocked()
	return nil
}

// Tunables resolves the reactor sizing knobs as of the current snapshot.
func (cs *ConfigStore) Tunables() ReactorTunables {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return ReactorTunables{
		MaxThreads:       cs.v.GetInt("max_threads"),
		TableWidth:       cs.v.GetInt("table_width"),
		SlotWidth:        cs.v.GetInt("slot_width"),
		EventThreadCount: cs.v.GetInt("event_thread_count"),
	}
}

// GetSnapshot returns a copy of every resolved config value.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.v.AllSettings()
}

// SetConfig overrides individual keys at runtime and dispatches reload.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.v.Set(k, v)
	}
	cs.dispatchReloadLocked()
}

// OnReload registers a listener hook called whenever config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func (cs *ConfigStore) dispatchReloadLocked() {
	for _, fn := range cs.listeners {
		go fn()
	}
	TriggerHotReload()
}
