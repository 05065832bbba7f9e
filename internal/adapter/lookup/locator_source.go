// Package lookup resolves callsigns to grid squares out of the station's own
// archive, behind a TTL cache and a circuit breaker.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/statwatch-io/statwatch/internal/domain"
)

type cacheEntry struct {
	grid      domain.Locator
	found     bool
	expiresAt time.Time
}

type lookupResult struct {
	grid  domain.Locator
	found bool
}

// ArchiveLocatorSource implements domain.LocatorSource on the archive's
// last-known-grid index. Hits and misses are both cached for the TTL;
// repeated archive failures open the breaker, after which lookups degrade
// to "unavailable" without touching the archive until it cools down.
type ArchiveLocatorSource struct {
	archive  domain.ArchiveRepository
	logger   *slog.Logger
	cache    map[string]cacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	breaker  *gobreaker.CircuitBreaker
}

// NewArchiveLocatorSource creates a locator source backed by the archive.
func NewArchiveLocatorSource(archive domain.ArchiveRepository, cacheTTL time.Duration, logger *slog.Logger) *ArchiveLocatorSource {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "locator-lookup",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &ArchiveLocatorSource{
		archive:  archive,
		logger:   logger.With("component", "locator_source"),
		cache:    make(map[string]cacheEntry),
		cacheTTL: cacheTTL,
		breaker:  breaker,
	}
}

// Lookup returns the last grid square archived for the callsign, or
// ErrLookupUnavailable when none is known or lookups are suspended.
func (s *ArchiveLocatorSource) Lookup(ctx context.Context, callsign string) (domain.Locator, error) {
	// 1. Check cache with a read lock
	s.mu.RLock()
	entry, found := s.cache[callsign]
	s.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		return entryResult(entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache in case another goroutine populated it while
	// waiting for the lock
	entry, found = s.cache[callsign]
	if found && time.Now().Before(entry.expiresAt) {
		return entryResult(entry)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// 2. Query the archive through the breaker
	res, err := s.breaker.Execute(func() (interface{}, error) {
		grid, err := s.archive.LastKnownGrid(ctx, callsign)
		if errors.Is(err, domain.ErrLookupUnavailable) {
			// An empty index is an answer, not a breaker failure.
			return lookupResult{}, nil
		}
		if err != nil {
			return nil, err
		}
		return lookupResult{grid: grid, found: grid.Known()}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Debug("locator lookup suspended by circuit breaker", "callsign", callsign)
			return "", fmt.Errorf("lookup suspended: %w", domain.ErrLookupUnavailable)
		}
		// Don't cache errors, let the next request retry from the archive
		return "", err
	}

	// 3. Update cache
	lr := res.(lookupResult)
	s.cache[callsign] = cacheEntry{
		grid:      lr.grid,
		found:     lr.found,
		expiresAt: time.Now().Add(s.cacheTTL),
	}

	if !lr.found {
		return "", domain.ErrLookupUnavailable
	}
	return lr.grid, nil
}

func entryResult(e cacheEntry) (domain.Locator, error) {
	if !e.found {
		return "", domain.ErrLookupUnavailable
	}
	return e.grid, nil
}
