// Package shutdown coordinates graceful teardown of the process. Components
// register in startup order and are shut down in reverse, so the cron
// scheduler stops producing work before the store closes under it.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/submgr/billing/internal/domain/ports"
)

// Func shuts down one component
type Func func(context.Context) error

type component struct {
	name string
	fn   Func
}

// Manager runs registered shutdown functions in reverse registration order
type Manager struct {
	logger     ports.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
}

// NewManager creates a shutdown manager with an overall teardown timeout
func NewManager(logger ports.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a shutdown function. Register in startup order; teardown
// happens last-in-first-out.
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// RegisterCloser registers a component exposing Close() error
func (m *Manager) RegisterCloser(name string, closer interface{ Close() error }) {
	m.Register(name, func(ctx context.Context) error {
		return closer.Close()
	})
}

// RegisterNoErr registers a shutdown function without an error return
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(ctx context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then tears everything down
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	m.logger.Info("shutdown signal received", ports.String("signal", sig.String()))

	m.Shutdown()
}

// Shutdown runs all registered shutdown functions in reverse order
func (m *Manager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	started := time.Now()
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		if err := comp.fn(ctx); err != nil {
			m.logger.Error("component shutdown failed",
				ports.String("component", comp.name),
				ports.Err(err))
			continue
		}
		m.logger.Info("component shut down", ports.String("component", comp.name))
	}

	m.logger.Info("graceful shutdown complete",
		ports.String("elapsed", time.Since(started).String()))
}
