package ecs

import (
	"sync"
	"time"
)

// Config holds process-wide configuration, generalized from the teacher's
// single table-events setter into the small set of global toggles the core
// needs: the cached shared-memory probe (§6 "Environment flag"), the
// well-known GUID component used by the state hasher's stable key (§4.10),
// and default wave-runner knobs new schedulers can start from.
var Config config

type config struct {
	mu sync.RWMutex

	sharedMemoryOverride *bool
	guidComponent        TypeID
	guidComponentSet     bool

	defaultSystemTimeout time.Duration
	defaultWaveTimeout   time.Duration
}

// SetSharedMemoryAvailable overrides the cached shared-memory probe. Pass
// nil to fall back to the real probe (always false for this in-process
// implementation; see SharedMemoryAvailable).
func (c *config) SetSharedMemoryAvailable(v *bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sharedMemoryOverride = v
}

// SetGUIDComponent designates which registered component type holds the
// stable GUID string consulted by the state hasher (§4.10 step 2).
func (c *config) SetGUIDComponent(id TypeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guidComponent = id
	c.guidComponentSet = true
}

// GUIDComponent returns the configured GUID component type, if any.
func (c *config) GUIDComponent() (TypeID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guidComponent, c.guidComponentSet
}

// SetDefaultTimeouts configures the per-system and per-wave timeouts that
// wave.NewRunner starts from; WithSystemTimeout/WithWaveTimeout options
// passed to NewRunner override them.
func (c *config) SetDefaultTimeouts(system, wave time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultSystemTimeout = system
	c.defaultWaveTimeout = wave
}

// DefaultTimeouts returns the configured fallback timeouts.
func (c *config) DefaultTimeouts() (system, wave time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultSystemTimeout, c.defaultWaveTimeout
}

// SharedMemoryAvailable reports whether the shared-memory typed-column path
// should be exercised. The process never actually maps cross-process shared
// memory; this flag exists so callers and tests can force either code path
// deterministically (§6 "Environment flag": cached after first probe, and
// when false every caller transparently uses the array-column/host-kernel
// path).
func SharedMemoryAvailable() bool {
	Config.mu.RLock()
	defer Config.mu.RUnlock()
	if Config.sharedMemoryOverride != nil {
		return *Config.sharedMemoryOverride
	}
	return false
}

// Reset restores Config to its zero state. Intended for test isolation,
// mirroring the explicit reset hooks the design notes require for every
// process-scoped singleton.
func (c *config) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sharedMemoryOverride = nil
	c.guidComponent = InvalidTypeID
	c.guidComponentSet = false
	c.defaultSystemTimeout = 0
	c.defaultWaveTimeout = 0
}
