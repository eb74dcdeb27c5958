package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	exists    bool
	existsErr error
	made      int
	putErr    error
	puts      map[string]string // key -> content type
}

func newFakeStore() *fakeStore {
	return &fakeStore{puts: make(map[string]string)}
}

func (f *fakeStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.made++
	f.exists = true
	return nil
}

func (f *fakeStore) FPutObject(ctx context.Context, bucket, key, file string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	if _, err := os.Stat(file); err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key}, nil
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{
		"cat/c-program/cat.c",
		"cat/rust-program/src/main.rs",
		"ls/c-program/ls.h",
		".staging/tmp/half.c",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0644))
	}
	return root
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, rel, want string
	}{
		{"corpus", "cat/c-program/cat.c", "corpus/cat/c-program/cat.c"},
		{"/corpus/", "/cat/rust-program/src/main.rs", "corpus/cat/rust-program/src/main.rs"},
		{"", "cat/c-program/cat.c", "cat/c-program/cat.c"},
		{"a/b", "x.rs", "a/b/x.rs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, objectKey(tt.prefix, tt.rel), "prefix=%q rel=%q", tt.prefix, tt.rel)
	}
}

func TestPlanSkipsHiddenDirectories(t *testing.T) {
	root := writeCorpus(t)
	uploads, err := Plan(root, "corpus")
	require.NoError(t, err)

	var keys []string
	for _, u := range uploads {
		keys = append(keys, u.Key)
		assert.True(t, filepath.IsAbs(u.Path))
	}
	assert.Equal(t, []string{
		"corpus/cat/c-program/cat.c",
		"corpus/cat/rust-program/src/main.rs",
		"corpus/ls/c-program/ls.h",
	}, keys)
}

func TestPublishCreatesBucketOnce(t *testing.T) {
	root := writeCorpus(t)
	store := newFakeStore()
	p := newPublisher(store, "bucket", defaultRegion, "corpus")

	n, err := p.Publish(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.made)
	assert.Equal(t, "text/x-rust", store.puts["corpus/cat/rust-program/src/main.rs"])
	assert.Equal(t, "text/x-c", store.puts["corpus/ls/c-program/ls.h"])

	_, err = p.Publish(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, store.made)
}

func TestPublishExistingBucket(t *testing.T) {
	store := newFakeStore()
	store.exists = true
	p := newPublisher(store, "bucket", defaultRegion, "")

	n, err := p.Publish(context.Background(), writeCorpus(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, store.made)
	assert.Contains(t, store.puts, "cat/c-program/cat.c")
}

func TestPublishErrors(t *testing.T) {
	root := writeCorpus(t)

	t.Run("bucket check fails", func(t *testing.T) {
		store := newFakeStore()
		store.existsErr = errors.New("access denied")
		_, err := newPublisher(store, "b", defaultRegion, "").Publish(context.Background(), root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ensure bucket: access denied")
	})

	t.Run("upload fails", func(t *testing.T) {
		store := newFakeStore()
		store.putErr = errors.New("slow down")
		n, err := newPublisher(store, "b", defaultRegion, "p").Publish(context.Background(), root)
		require.Error(t, err)
		assert.Zero(t, n)
		assert.Contains(t, err.Error(), "upload p/cat/c-program/cat.c")
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := newPublisher(newFakeStore(), "b", defaultRegion, "").Publish(context.Background(), filepath.Join(root, "nope"))
		assert.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := newFakeStore()
		store.exists = true
		n, err := newPublisher(store, "b", defaultRegion, "").Publish(ctx, root)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, n)
	})
}

func TestNewS3PublisherValidation(t *testing.T) {
	_, err := NewS3Publisher(Config{Bucket: "b", AccessKey: "a", SecretKey: "s"})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewS3Publisher(Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.ErrorContains(t, err, "access key")

	_, err = NewS3Publisher(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket")

	p, err := NewS3Publisher(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "corpus"})
	require.NoError(t, err)
	assert.Equal(t, "corpus", p.Bucket())
	assert.Equal(t, defaultRegion, p.region)
}
