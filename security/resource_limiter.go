// Package security holds the resource limits applied to contract execution.
package security

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxArenaBytes caps the host arena of one call.
	DefaultMaxArenaBytes uint64 = 64 << 20
	// DefaultMemoryLimitPages caps the module's own linear memory (64KiB pages).
	DefaultMemoryLimitPages uint32 = 2048
	// MaxMemoryLimitPages is the 4GiB ceiling of a 32-bit linear memory.
	MaxMemoryLimitPages uint32 = 65536
)

// ErrInvalidLimits is returned for limits no runtime can be configured with.
var ErrInvalidLimits = errors.New("invalid limits")

// Limits bounds the resources a contract may use. Zero fields fall back to the
// defaults, except CallTimeout where zero means no timeout.
type Limits struct {
	MaxArenaBytes    uint64        `toml:"max_arena_bytes"`
	MemoryLimitPages uint32        `toml:"memory_limit_pages"`
	CallTimeout      time.Duration `toml:"call_timeout"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxArenaBytes:    DefaultMaxArenaBytes,
		MemoryLimitPages: DefaultMemoryLimitPages,
	}
}

// Normalize fills unset fields with defaults.
func (l Limits) Normalize() Limits {
	if l.MaxArenaBytes == 0 {
		l.MaxArenaBytes = DefaultMaxArenaBytes
	}
	if l.MemoryLimitPages == 0 {
		l.MemoryLimitPages = DefaultMemoryLimitPages
	}
	return l
}

// Validate rejects limits outside what the runtime accepts.
func (l Limits) Validate() error {
	if l.MemoryLimitPages > MaxMemoryLimitPages {
		return fmt.Errorf("%w: memory_limit_pages %d exceeds %d", ErrInvalidLimits, l.MemoryLimitPages, MaxMemoryLimitPages)
	}
	if l.CallTimeout < 0 {
		return fmt.Errorf("%w: negative call_timeout %s", ErrInvalidLimits, l.CallTimeout)
	}
	return nil
}

// Bounded reports whether calls run under a timeout.
func (l Limits) Bounded() bool { return l.CallTimeout > 0 }

// WithDeadline derives the context a single call runs under.
func (l Limits) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.CallTimeout)
}
