// Package repocache maps repository URLs to local checkouts. Each distinct
// URL is cloned at most once per run; concurrent requests for the same URL
// wait for the first clone and share its result.
package repocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/harrison/paircorpus/internal/filelock"
	"github.com/harrison/paircorpus/internal/models"
)

const (
	tempPrefix   = ".tmp-"
	lockSuffix   = ".lock"
	entrySuffix  = ".json"
	checkoutName = "checkout"
)

// Logger is the subset of the run logger used by the cache.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger for clone and reuse events.
func WithLogger(l Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryPolicy sets the clone retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Cache) {
		c.retry = p
	}
}

// entry is the per-URL state. ready is closed once path or err is set.
type entry struct {
	ready    chan struct{}
	path     string
	clonedAt time.Time
	err      error
}

// Cache owns the URL to checkout mapping for one run.
type Cache struct {
	root      string
	transport Transport
	logger    Logger
	retry     RetryPolicy

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a cache rooted at root. The directory is created if missing.
func New(root string, transport Transport, opts ...Option) (*Cache, error) {
	if transport == nil {
		return nil, errors.New("repocache: transport is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}

	c := &Cache{
		root:      absRoot,
		transport: transport,
		logger:    nopLogger{},
		retry:     DefaultRetryPolicy(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Root returns the absolute cache root.
func (c *Cache) Root() string {
	return c.root
}

// Acquire returns the local checkout path for url, cloning it on first use.
// A failed clone leaves no entry behind, so a later Acquire tries again.
func (c *Cache) Acquire(ctx context.Context, url string) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[url]; ok {
		c.mu.Unlock()
		select {
		case <-e.ready:
			return e.path, e.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	e := &entry{ready: make(chan struct{})}
	c.entries[url] = e
	c.mu.Unlock()

	e.path, e.clonedAt, e.err = c.materialize(ctx, url)
	if e.err != nil {
		c.mu.Lock()
		delete(c.entries, url)
		c.mu.Unlock()
	}
	close(e.ready)
	return e.path, e.err
}

// Entries returns the checkouts acquired during this run, sorted by URL.
func (c *Cache) Entries() []models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.CacheEntry
	for url, e := range c.entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.err != nil {
			continue
		}
		out = append(out, models.CacheEntry{RepositoryURL: url, LocalPath: e.path, ClonedAt: e.clonedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RepositoryURL < out[j].RepositoryURL })
	return out
}

// Purge removes the entire cache root. A missing root is not an error.
func (c *Cache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("failed to remove cache root %s: %w", c.root, err)
	}
	c.entries = make(map[string]*entry)
	return nil
}

// materialize returns a valid checkout for url, cloning when the on-disk
// entry is missing or incomplete. The per-URL file lock serializes this
// against other processes sharing the cache root.
func (c *Cache) materialize(ctx context.Context, url string) (string, time.Time, error) {
	name := DirName(url)
	dir := filepath.Join(c.root, name)
	sidecar := filepath.Join(c.root, name+entrySuffix)

	lock := filelock.NewFileLock(filepath.Join(c.root, name+lockSuffix))
	if err := lock.LockContext(ctx); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to lock cache entry for %s: %w", url, err)
	}
	defer lock.Unlock()

	if recorded, ok := readEntry(sidecar, url, dir); ok {
		c.logger.LogDebug(fmt.Sprintf("Reusing cached checkout of %s at %s", url, dir))
		return dir, recorded.ClonedAt, nil
	}

	// Anything left here is a half-finished clone from an interrupted run.
	for _, stale := range []string{dir, sidecar, filepath.Join(c.root, tempPrefix+name)} {
		if err := os.RemoveAll(stale); err != nil {
			return "", time.Time{}, fmt.Errorf("failed to clean stale cache entry %s: %w", stale, err)
		}
	}

	staging := filepath.Join(c.root, tempPrefix+name)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create clone staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	dest := filepath.Join(staging, checkoutName)

	c.logger.LogInfo(fmt.Sprintf("Cloning %s", url))
	attempts, err := c.retry.do(ctx,
		func(attempt int, delay time.Duration, err error) {
			c.logger.LogWarn(fmt.Sprintf("Clone of %s failed (attempt %d/%d), retrying in %s: %v",
				url, attempt, c.retry.MaxAttempts, delay, err))
		},
		func(ctx context.Context) error {
			if err := os.RemoveAll(dest); err != nil {
				return err
			}
			return c.transport.Clone(ctx, url, dest)
		})
	if err != nil {
		return "", time.Time{}, &CloneFailedError{URL: url, Attempts: attempts, Err: err}
	}

	if err := os.Rename(dest, dir); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to move checkout into cache: %w", err)
	}

	recorded := models.CacheEntry{RepositoryURL: url, LocalPath: dir, ClonedAt: time.Now().UTC()}
	if err := filelock.AtomicWriteJSON(sidecar, recorded); err != nil {
		os.RemoveAll(dir)
		return "", time.Time{}, fmt.Errorf("failed to record cache entry: %w", err)
	}

	c.logger.LogDebug(fmt.Sprintf("Cloned %s into %s", url, dir))
	return dir, recorded.ClonedAt, nil
}

// readEntry loads the sidecar for a checkout. A checkout only counts when
// both the directory and a sidecar naming the same URL exist.
func readEntry(sidecar, url, dir string) (models.CacheEntry, bool) {
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return models.CacheEntry{}, false
	}
	var recorded models.CacheEntry
	if err := json.Unmarshal(data, &recorded); err != nil || recorded.RepositoryURL != url {
		return models.CacheEntry{}, false
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return models.CacheEntry{}, false
	}
	return recorded, true
}
