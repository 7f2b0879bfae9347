package errutil

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/small-frappuccino/botdash/pkg/log"
)

var (
	mu     sync.RWMutex
	logger *log.Logger
)

// InitializeGlobalErrorHandler sets the logger used by the error helpers.
// It is safe to call multiple times; the last non-nil logger wins.
func InitializeGlobalErrorHandler(l *log.Logger) error {
	if l == nil {
		return fmt.Errorf("nil logger provided")
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func categoryLogger(c log.Category) *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l.For(c)
	}
	return slog.Default()
}

// HandleDiscordError executes fn and logs any error as a Discord failure.
// The error is returned unmodified.
func HandleDiscordError(operation string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}
	err := fn()
	if err == nil {
		return nil
	}
	categoryLogger(log.Discord).Error("Discord operation failed", "operation", operation, "error", err)
	return err
}

// HandleConfigError executes fn and logs any error as a configuration failure.
// It returns a wrapped error with context about the operation and path.
func HandleConfigError(operation, path string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}
	err := fn()
	if err == nil {
		return nil
	}
	categoryLogger(log.Application).Error("Config operation failed", "operation", operation, "path", path, "error", err)
	return fmt.Errorf("config %s %s: %w", operation, path, err)
}

// HandleStoreError executes fn and logs any error as a store failure.
// It returns a wrapped error naming the operation.
func HandleStoreError(operation string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}
	err := fn()
	if err == nil {
		return nil
	}
	categoryLogger(log.Database).Error("Store operation failed", "operation", operation, "error", err)
	return fmt.Errorf("store %s: %w", operation, err)
}
