// Package seed manages the session seed: a search query that initializes the
// random engine and is remembered between runs so a session can be replayed.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// DefaultPath is where the last seed is remembered.
const DefaultPath = "~/.hosit/last_seed"

// Source produces a fresh seed, typically a random search query.
type Source interface {
	RandomQuery(ctx context.Context) (string, error)
}

// Store persists the last seed in a side file.
type Store struct {
	path string
}

// NewStore creates a store at path, expanding a leading '~'. An empty path uses DefaultPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("seed: failed to expand path %q: %w", path, err)
	}
	return &Store{path: expanded}, nil
}

// Path returns the resolved file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored seed. ok is false when nothing was stored yet.
func (s *Store) Load() (seed string, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("seed: failed to read %s: %w", s.path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), true, nil
}

// Save stores seed, creating the parent directory if needed.
func (s *Store) Save(seed string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("seed: failed to create directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(seed+"\n"), 0o644); err != nil {
		return fmt.Errorf("seed: failed to write %s: %w", s.path, err)
	}
	return nil
}

// Options controls Bootstrap.
type Options struct {
	// Explicit forces this seed and skips the stored and generated ones.
	Explicit string
	// Reuse replays the stored seed if one exists.
	Reuse bool
}

// Bootstrap decides the seed of a new session. An explicit seed wins; with
// Reuse a stored seed is replayed; otherwise a fresh one is drawn from
// source and remembered. A failing source leaves the seed empty, which the
// random engine accepts with a warning.
func Bootstrap(ctx context.Context, store *Store, source Source, opts Options, logger *zap.Logger) (string, error) {
	logger = logger.Named("seed")

	if opts.Explicit != "" {
		logger.Info("Using explicit seed.", zap.String("seed", opts.Explicit))
		return opts.Explicit, store.Save(opts.Explicit)
	}

	if opts.Reuse {
		stored, ok, err := store.Load()
		if err != nil {
			return "", err
		}
		if ok {
			logger.Info("Replaying stored seed.", zap.String("seed", stored), zap.String("path", store.Path()))
			return stored, nil
		}
	}

	if source == nil {
		logger.Warn("No seed source configured, continuing without a seed.")
		return "", nil
	}
	fresh, err := source.RandomQuery(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("Seed source failed, continuing without a seed.", zap.Error(err))
		return "", nil
	}
	if err := store.Save(fresh); err != nil {
		return "", err
	}
	logger.Info("Generated new seed.", zap.String("seed", fresh))
	return fresh, nil
}
