package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrison/paircorpus/internal/config"
	"github.com/harrison/paircorpus/internal/repocache"
)

const (
	testCURL    = "https://example.com/gnu/coreutils.git"
	testRustURL = "https://example.com/uutils/coreutils.git"
	missingURL  = "https://example.com/gone/nothing.git"
)

const testMetadata = `{
  "pairs": [
    {
      "program_name": "cat",
      "translation_tools": ["manual"],
      "feature_relationship": "rust_equivalent_to_c",
      "c_program": {
        "language": "c",
        "repository_url": "` + testCURL + `",
        "source_paths": ["src/cat.c"]
      },
      "rust_program": {
        "language": "rust",
        "repository_url": "` + testRustURL + `",
        "source_paths": ["src/uu/cat"]
      }
    },
    {
      "program_name": "wc",
      "translation_tools": ["manual"],
      "feature_relationship": "rust_superset_of_c",
      "c_program": {
        "language": "c",
        "repository_url": "` + testCURL + `",
        "source_paths": ["src/wc.c"]
      },
      "rust_program": {
        "language": "rust",
        "repository_url": "` + testRustURL + `",
        "source_paths": ["src/uu/wc"]
      }
    }
  ]
}
`

// localTransport serves clones from in-memory trees and counts them.
type localTransport struct {
	mu     sync.Mutex
	repos  map[string]map[string]string
	clones map[string]int
}

func newLocalTransport() *localTransport {
	return &localTransport{
		repos: map[string]map[string]string{
			testCURL: {
				"src/cat.c": "int main(void) { return 0; }\n",
				"src/wc.c":  "static int count(void) { return 1; }\nint main(void) { return count(); }\n",
				"README":    "coreutils\n",
			},
			testRustURL: {
				"src/uu/cat/src/cat.rs": "pub fn uumain() {}\n",
				"src/uu/cat/Cargo.toml": "[package]\n",
				"src/uu/wc/src/wc.rs":   "pub struct Settings;\npub fn uumain() {}\n",
			},
		},
		clones: make(map[string]int),
	}
}

func (l *localTransport) Clone(ctx context.Context, url, dest string) error {
	l.mu.Lock()
	l.clones[url]++
	files, ok := l.repos[url]
	l.mu.Unlock()
	if !ok {
		return &repocache.TransportError{Permanent: true, Output: "repository not found", Err: errors.New("exit status 128")}
	}
	for rel, content := range files {
		p := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (l *localTransport) totalClones() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.clones {
		n += c
	}
	return n
}

// setupProject creates a project in a temp working directory and swaps the
// clone transport for a local one.
func setupProject(t *testing.T, metadataJSON string) (string, *localTransport) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvHome, "")
	t.Setenv(config.EnvS3Endpoint, "")
	t.Setenv(config.EnvS3Bucket, "")
	t.Setenv(config.EnvS3AccessKey, "")
	t.Setenv(config.EnvS3SecretKey, "")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "metadata"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata", "individual.json"), []byte(metadataJSON), 0644))

	transport := newLocalTransport()
	orig := newTransport
	newTransport = func(int) repocache.Transport { return transport }
	t.Cleanup(func() { newTransport = orig })

	return dir, transport
}

// executeCommand runs the root command with args and returns combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
