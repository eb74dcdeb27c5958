package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewFileLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "checkout.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}
	if lock.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.Path())
	}
}

func TestLockCreatesParentDirectory(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "cache", "nested", "repo.lock")

	lock := NewFileLock(lockPath)
	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestConcurrentLocking(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "counter.lock")
	counterPath := filepath.Join(tmpDir, "counter.txt")
	if err := os.WriteFile(counterPath, []byte("0"), 0644); err != nil {
		t.Fatal(err)
	}

	const goroutines = 5
	const iterations = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				lock := NewFileLock(lockPath)
				if err := lock.LockContext(context.Background()); err != nil {
					t.Errorf("Failed to acquire lock: %v", err)
					return
				}

				data, _ := os.ReadFile(counterPath)
				var counter int
				fmt.Sscanf(string(data), "%d", &counter)
				time.Sleep(time.Millisecond)
				counter++
				os.WriteFile(counterPath, []byte(fmt.Sprintf("%d", counter)), 0644)

				if err := lock.Unlock(); err != nil {
					t.Errorf("Failed to release lock: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(counterPath)
	if err != nil {
		t.Fatalf("Failed to read final counter: %v", err)
	}
	var finalCounter int
	fmt.Sscanf(string(data), "%d", &finalCounter)
	if finalCounter != goroutines*iterations {
		t.Errorf("Expected counter %d, got %d (race condition detected)", goroutines*iterations, finalCounter)
	}
}

func TestTryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	acquired, err := lock1.TryLock()
	if err != nil || !acquired {
		t.Fatalf("first TryLock should succeed: acquired=%v err=%v", acquired, err)
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("second TryLock should fail when lock is held")
	}

	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	acquired, err = lock2.TryLock()
	if err != nil || !acquired {
		t.Errorf("TryLock should succeed after unlock: acquired=%v err=%v", acquired, err)
	}
	lock2.Unlock()
}

func TestLockContextCanceled(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "held.lock")

	holder := NewFileLock(lockPath)
	if err := holder.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	waiter := NewFileLock(lockPath)
	if err := waiter.LockContext(ctx); err == nil {
		waiter.Unlock()
		t.Fatal("expected LockContext to fail while lock is held")
	}
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "sub", "entry.json")

	if err := AtomicWrite(targetPath, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if err := AtomicWrite(targetPath, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite overwrite failed: %v", err)
	}

	got, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Expected content %q, got %q", "second", string(got))
	}

	entries, err := os.ReadDir(filepath.Dir(targetPath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestAtomicWriteJSON(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "entry.json")

	err := AtomicWriteJSON(targetPath, map[string]string{"repository_url": "https://example.com/a.git"})
	if err != nil {
		t.Fatalf("AtomicWriteJSON failed: %v", err)
	}

	got, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"repository_url\": \"https://example.com/a.git\"\n}\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", string(got), want)
	}
}

func TestLockAndWrite(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "report.md")

	if err := LockAndWrite(targetPath, []byte("# Report")); err != nil {
		t.Fatalf("LockAndWrite failed: %v", err)
	}
	got, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "# Report" {
		t.Errorf("got %q", string(got))
	}
}
