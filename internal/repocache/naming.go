package repocache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const hashLength = 12

// DirName returns the deterministic cache directory name for a repository
// URL: the sanitized repository name followed by a short hash of the full
// URL, e.g. coreutils-3f1c2a9b0d4e. Two URLs with the same repository name
// never share a directory.
func DirName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return repoName(url) + "-" + hex.EncodeToString(sum[:])[:hashLength]
}

// repoName extracts the last path segment of a URL without its .git suffix.
func repoName(url string) string {
	name := strings.TrimRight(url, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	sanitized := strings.TrimLeft(b.String(), ".-")
	if sanitized == "" {
		return "repo"
	}
	return sanitized
}
