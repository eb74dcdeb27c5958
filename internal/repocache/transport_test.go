package repocache

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubGit(t *testing.T, fn func(ctx context.Context, args ...string) ([]byte, error)) {
	t.Helper()
	orig := runGit
	runGit = fn
	t.Cleanup(func() { runGit = orig })
}

func TestGitTransportArgs(t *testing.T) {
	var got []string
	stubGit(t, func(ctx context.Context, args ...string) ([]byte, error) {
		got = args
		return nil, nil
	})

	require.NoError(t, NewGitTransport(1).Clone(context.Background(), "https://example.com/r.git", "/tmp/dest"))
	assert.Equal(t, []string{"clone", "--quiet", "--depth", "1", "--", "https://example.com/r.git", "/tmp/dest"}, got)

	require.NoError(t, NewGitTransport(0).Clone(context.Background(), "https://example.com/r.git", "/tmp/dest"))
	assert.Equal(t, []string{"clone", "--quiet", "--", "https://example.com/r.git", "/tmp/dest"}, got)
}

func TestGitTransportClassifiesErrors(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		err           error
		wantPermanent bool
	}{
		{
			name:          "not found",
			output:        "remote: Repository not found.\nfatal: repository 'https://github.com/x/y.git/' not found",
			err:           errors.New("exit status 128"),
			wantPermanent: true,
		},
		{
			name:          "no credentials",
			output:        "fatal: could not read Username for 'https://github.com': terminal prompts disabled",
			err:           errors.New("exit status 128"),
			wantPermanent: true,
		},
		{
			name:          "network",
			output:        "fatal: unable to access 'https://github.com/x/y.git/': Could not resolve host: github.com",
			err:           errors.New("exit status 128"),
			wantPermanent: false,
		},
		{
			name:          "missing git",
			err:           exec.ErrNotFound,
			wantPermanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubGit(t, func(ctx context.Context, args ...string) ([]byte, error) {
				return []byte(tt.output), tt.err
			})
			err := NewGitTransport(1).Clone(context.Background(), "https://github.com/x/y.git", t.TempDir())
			require.Error(t, err)

			var terr *TransportError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.wantPermanent, terr.Permanent)
			assert.Equal(t, tt.wantPermanent, IsPermanent(err))
			if tt.output != "" {
				assert.Contains(t, err.Error(), strings.SplitN(tt.output, "\n", 2)[0])
			}
		})
	}
}

func TestGitTransportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stubGit(t, func(ctx context.Context, args ...string) ([]byte, error) {
		return nil, errors.New("signal: killed")
	})
	err := NewGitTransport(1).Clone(ctx, "https://example.com/r.git", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsPermanent(err))
}

func TestDirName(t *testing.T) {
	tests := []struct {
		url    string
		prefix string
	}{
		{"https://github.com/uutils/coreutils.git", "coreutils-"},
		{"https://github.com/uutils/coreutils/", "coreutils-"},
		{"git@github.com:owner/my_repo.git", "my_repo-"},
		{"git@host:repo.git", "repo-"},
		{"file:///srv/git/weird name!.git", "weird-name--"},
		{"https://example.com/.git", "repo-"},
	}
	for _, tt := range tests {
		name := DirName(tt.url)
		assert.True(t, strings.HasPrefix(name, tt.prefix), "%s -> %s", tt.url, name)
		assert.Len(t, name, len(tt.prefix)+hashLength)
		assert.Equal(t, name, DirName(tt.url), "deterministic")
	}

	a := DirName("https://github.com/coreutils/coreutils.git")
	b := DirName("https://github.com/uutils/coreutils.git")
	assert.NotEqual(t, a, b, "same repository name on different hosts or owners must not collide")
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(30))

	assert.Equal(t, time.Duration(0), RetryPolicy{}.Delay(3))
}

func TestRetryPolicyDo(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond}

	var retries []int
	calls := 0
	attempts, err := p.do(context.Background(),
		func(attempt int, _ time.Duration, _ error) { retries = append(retries, attempt) },
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err = p.do(ctx, nil, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestRetryPolicyAttemptTimeout(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond}
	calls := 0
	attempts, err := p.do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts, "a timed-out attempt is retried")
	assert.Equal(t, 2, calls)
}
