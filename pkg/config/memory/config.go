// Package memory provides a settable in-process config source, mainly for
// tests and programmatic overrides.
package memory

import (
	"context"
	"sync"

	"github.com/code-payments/anchor-bindings/pkg/config"
)

// Config holds a single value in memory. A nil value reads as unset.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

// NewConfig returns a config holding value.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements config.Config.
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

// Shutdown implements config.Config.
func (c *Config) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

// Set replaces the held value. Setting nil clears it.
func (c *Config) Set(value interface{}) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

// Fail makes every Get return err until Fail(nil) is called.
func (c *Config) Fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}
