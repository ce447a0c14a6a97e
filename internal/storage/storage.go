package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/getjson/internal/domain"
)

// Package storage keeps a journal of fetch outcomes. It never serves responses back.

// Store records settled fetch outcomes.
type Store interface {
	Close() error
	Record(o domain.Outcome) error
	// Recent returns up to limit unexpired outcomes, newest first.
	Recent(limit int) ([]domain.Outcome, error)
}

// ErrInvalidConfig marks storage settings that can never open, as opposed to
// a backend that failed to open.
var ErrInvalidConfig = errors.New("invalid storage config")

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	OutcomeTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultOutcomeTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("%w: bbolt storage requires a path", ErrInvalidConfig)
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported storage type %q", ErrInvalidConfig, typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OutcomeTTL <= 0 {
		opts.OutcomeTTL = defaultOutcomeTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                          { return nil }
func (noopStore) Record(domain.Outcome) error           { return nil }
func (noopStore) Recent(int) ([]domain.Outcome, error) { return nil, nil }
