// Package fileutil provides directory scanning and file copy helpers shared by
// metadata discovery, source extraction and corpus publication.
//
// ScanDirectory walks a directory with extension, suffix and directory
// exclusions and returns sorted absolute paths. Non-fatal errors (for example
// an unreadable subdirectory) are collected in ScanResult.Errors and the walk
// continues; only an invalid root or pattern fails the scan.
//
// CopyFile copies a single regular file, creating parent directories and
// preserving the permission bits of the source. Failures reading the source
// are returned as *SourceError so callers can tell them from write failures.
//
// Usage:
//
//	result, err := fileutil.ScanDirectory("metadata", fileutil.ScanOptions{
//	    Extensions:      []string{".json", ".yaml", ".yml"},
//	    ExcludeSuffixes: []string{".schema.json"},
//	    Recursive:       true,
//	})
package fileutil
