package repocache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport writes a marker file into dest and counts clones per URL.
type fakeTransport struct {
	mu       sync.Mutex
	clones   map[string]int
	failures map[string][]error // errors returned on successive attempts
	gate     chan struct{}      // when set, Clone blocks until it is closed
	started  chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{clones: make(map[string]int), failures: make(map[string][]error)}
}

func (f *fakeTransport) Clone(ctx context.Context, url, dest string) error {
	f.mu.Lock()
	f.clones[url]++
	var err error
	if queue := f.failures[url]; len(queue) > 0 {
		err = queue[0]
		f.failures[url] = queue[1:]
	}
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	if err != nil {
		// leave a partial checkout behind like an interrupted git clone
		os.WriteFile(filepath.Join(dest, "partial"), []byte("x"), 0644)
		return err
	}
	return os.WriteFile(filepath.Join(dest, "README"), []byte(url), 0644)
}

func (f *fakeTransport) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clones[url]
}

func fastRetry() Option {
	return WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})
}

func TestAcquireClonesOnce(t *testing.T) {
	transport := newFakeTransport()
	cache, err := New(t.TempDir(), transport, fastRetry())
	require.NoError(t, err)

	url := "https://github.com/uutils/coreutils.git"
	first, err := cache.Acquire(context.Background(), url)
	require.NoError(t, err)
	second, err := cache.Acquire(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, filepath.Join(cache.Root(), DirName(url)), first)
	assert.Equal(t, 1, transport.count(url))

	data, err := os.ReadFile(filepath.Join(first, "README"))
	require.NoError(t, err)
	assert.Equal(t, url, string(data))
	assert.FileExists(t, filepath.Join(cache.Root(), DirName(url)+".json"))
	assert.NoDirExists(t, filepath.Join(cache.Root(), tempPrefix+DirName(url)))
}

func TestAcquireConcurrentSameURL(t *testing.T) {
	transport := newFakeTransport()
	transport.gate = make(chan struct{})
	transport.started = make(chan struct{}, 1)
	cache, err := New(t.TempDir(), transport, fastRetry())
	require.NoError(t, err)

	url := "https://github.com/coreutils/coreutils.git"
	const callers = 8
	paths := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = cache.Acquire(context.Background(), url)
		}(i)
	}

	<-transport.started
	close(transport.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
	assert.Equal(t, 1, transport.count(url), "concurrent callers share one clone")
}

func TestAcquireDistinctURLs(t *testing.T) {
	transport := newFakeTransport()
	cache, err := New(t.TempDir(), transport, fastRetry())
	require.NoError(t, err)

	urls := []string{
		"https://github.com/a/tool.git",
		"https://gitlab.com/b/tool.git",
		"https://github.com/c/other.git",
	}
	var wg sync.WaitGroup
	for _, u := range urls {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				_, err := cache.Acquire(context.Background(), u)
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	entries := cache.Entries()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, 1, transport.count(e.RepositoryURL))
		assert.DirExists(t, e.LocalPath)
		assert.False(t, e.ClonedAt.IsZero())
		if i > 0 {
			assert.Less(t, entries[i-1].RepositoryURL, e.RepositoryURL)
		}
	}
	assert.NotEqual(t, entries[0].LocalPath, entries[1].LocalPath)
}

func TestAcquireReusesAcrossRuns(t *testing.T) {
	root := t.TempDir()
	url := "https://github.com/uutils/coreutils.git"

	first := newFakeTransport()
	cache, err := New(root, first, fastRetry())
	require.NoError(t, err)
	path, err := cache.Acquire(context.Background(), url)
	require.NoError(t, err)

	second := newFakeTransport()
	cache, err = New(root, second, fastRetry())
	require.NoError(t, err)
	reused, err := cache.Acquire(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, path, reused)
	assert.Equal(t, 0, second.count(url), "a complete checkout is never refetched")
	assert.Len(t, cache.Entries(), 1)
}

func TestAcquireRecoversHalfClone(t *testing.T) {
	root := t.TempDir()
	url := "https://github.com/coreutils/coreutils.git"
	name := DirName(url)

	// interrupted run: directory present without a sidecar, plus a staging leftover
	require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, name, "junk"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, tempPrefix+name, checkoutName), 0755))

	transport := newFakeTransport()
	cache, err := New(root, transport, fastRetry())
	require.NoError(t, err)

	path, err := cache.Acquire(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.count(url))
	assert.NoFileExists(t, filepath.Join(path, "junk"))
	assert.FileExists(t, filepath.Join(path, "README"))
}

func TestAcquireRejectsSidecarForOtherURL(t *testing.T) {
	root := t.TempDir()
	url := "https://github.com/coreutils/coreutils.git"
	name := DirName(url)
	require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, name+".json"),
		[]byte(`{"repository_url": "https://example.com/other.git"}`), 0644))

	transport := newFakeTransport()
	cache, err := New(root, transport, fastRetry())
	require.NoError(t, err)
	_, err = cache.Acquire(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.count(url))
}

func TestAcquireRetriesTransientErrors(t *testing.T) {
	transport := newFakeTransport()
	url := "https://github.com/flaky/repo.git"
	transport.failures[url] = []error{
		&TransportError{Err: errors.New("connection reset")},
		&TransportError{Err: errors.New("connection reset")},
	}
	cache, err := New(t.TempDir(), transport, fastRetry())
	require.NoError(t, err)

	path, err := cache.Acquire(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 3, transport.count(url))
	assert.NoFileExists(t, filepath.Join(path, "partial"))
}

func TestAcquireCloneFailed(t *testing.T) {
	tests := []struct {
		name         string
		failures     []error
		wantAttempts int
	}{
		{
			name: "permanent error is not retried",
			failures: []error{
				&TransportError{Permanent: true, Output: "remote: Repository not found.", Err: errors.New("exit status 128")},
			},
			wantAttempts: 1,
		},
		{
			name: "transient errors exhaust attempts",
			failures: []error{
				&TransportError{Err: errors.New("timeout")},
				&TransportError{Err: errors.New("timeout")},
				&TransportError{Err: errors.New("timeout")},
			},
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			transport := newFakeTransport()
			url := "https://github.com/missing/repo.git"
			transport.failures[url] = tt.failures
			cache, err := New(root, transport, fastRetry())
			require.NoError(t, err)

			_, err = cache.Acquire(context.Background(), url)
			require.Error(t, err)
			assert.True(t, IsCloneFailed(err))

			var cloneErr *CloneFailedError
			require.ErrorAs(t, err, &cloneErr)
			assert.Equal(t, url, cloneErr.URL)
			assert.Equal(t, tt.wantAttempts, cloneErr.Attempts)
			assert.Equal(t, tt.wantAttempts, transport.count(url))
			assert.Contains(t, err.Error(), url)

			assert.NoDirExists(t, filepath.Join(root, DirName(url)), "no partial cache entry")
			assert.NoDirExists(t, filepath.Join(root, tempPrefix+DirName(url)))
			assert.Empty(t, cache.Entries())
		})
	}
}

func TestAcquireAfterFailureRetriesClone(t *testing.T) {
	transport := newFakeTransport()
	url := "https://github.com/once/broken.git"
	transport.failures[url] = []error{&TransportError{Permanent: true, Err: errors.New("auth")}}
	cache, err := New(t.TempDir(), transport, fastRetry())
	require.NoError(t, err)

	_, err = cache.Acquire(context.Background(), url)
	require.Error(t, err)
	_, err = cache.Acquire(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, 2, transport.count(url))
}

func TestAcquireCanceled(t *testing.T) {
	transport := newFakeTransport()
	transport.gate = make(chan struct{})
	cache, err := New(t.TempDir(), transport, fastRetry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Acquire(ctx, "https://github.com/slow/repo.git")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
	assert.NoDirExists(t, filepath.Join(cache.Root(), DirName("https://github.com/slow/repo.git")))
}

func TestPurge(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	transport := newFakeTransport()
	cache, err := New(root, transport, fastRetry())
	require.NoError(t, err)

	_, err = cache.Acquire(context.Background(), "https://github.com/a/b.git")
	require.NoError(t, err)

	require.NoError(t, cache.Purge())
	assert.NoDirExists(t, root)
	assert.Empty(t, cache.Entries())

	require.NoError(t, cache.Purge(), "purging a missing root succeeds")
}

func TestNewRequiresTransport(t *testing.T) {
	_, err := New(t.TempDir(), nil)
	assert.Error(t, err)
}
