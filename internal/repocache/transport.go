package repocache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Transport fetches a repository into dest. dest does not exist when Clone
// is called; on failure the caller removes whatever was left behind.
type Transport interface {
	Clone(ctx context.Context, url, dest string) error
}

// permanentMarkers are git error fragments that indicate retrying is pointless.
var permanentMarkers = []string{
	"repository not found",
	"authentication failed",
	"could not read username",
	"does not appear to be a git repository",
	"permission denied",
}

// runGit is injectable in tests.
var runGit = func(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd.CombinedOutput()
}

// GitTransport clones repositories with the git command line client.
type GitTransport struct {
	// Depth is passed as --depth; 0 clones the full history.
	Depth int
}

// NewGitTransport creates a GitTransport performing shallow clones of the given depth.
func NewGitTransport(depth int) *GitTransport {
	return &GitTransport{Depth: depth}
}

// Clone runs git clone for url into dest.
func (t *GitTransport) Clone(ctx context.Context, url, dest string) error {
	args := []string{"clone", "--quiet"}
	if t.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(t.Depth))
	}
	args = append(args, "--", url, dest)

	output, err := runGit(ctx, args...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &TransportError{Permanent: true, Err: fmt.Errorf("git executable not found: %w", err)}
	}
	return &TransportError{
		Permanent: isPermanentOutput(string(output)),
		Output:    string(output),
		Err:       fmt.Errorf("git clone: %w", err),
	}
}

func isPermanentOutput(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range permanentMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
