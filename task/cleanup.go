package task

import (
	"os"
	"sync"

	"github.com/skillsenselab/parakeet/logger"
)

// Cleanup collects transient file paths during task execution and removes
// them exactly once when the task finishes. Scheduling the same path twice is
// safe, as is a path that no longer exists.
type Cleanup struct {
	mu    sync.Mutex
	paths map[string]struct{}
	order []string
	done  bool
	log   *logger.Logger
}

// NewCleanup creates an empty cleanup coordinator.
func NewCleanup(log *logger.Logger) *Cleanup {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Cleanup{
		paths: make(map[string]struct{}),
		log:   log,
	}
}

// Add schedules paths for removal. Duplicates and empty paths are ignored.
// Adding after Run has executed is a no-op.
func (c *Cleanup) Add(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := c.paths[p]; ok {
			continue
		}
		c.paths[p] = struct{}{}
		c.order = append(c.order, p)
	}
}

// Run removes every scheduled path. Only the first call removes anything;
// subsequent calls return immediately.
func (c *Cleanup) Run() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	paths := c.order
	c.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			c.log.WithError(err).Warn("Failed to remove transient file", map[string]interface{}{
				"path": p,
			})
		}
	}
}
