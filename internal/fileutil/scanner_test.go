package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func TestScanDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// tmpDir/
	//   individual.json
	//   project.yaml
	//   README.md
	//   metadata.schema.json
	//   Upper.JSON
	//   project/
	//     coreutils.yml
	//     deep/
	//       nested.json
	//   .hidden/
	//     hidden.json
	//   demo/
	//     demo.json
	writeTree(t, tmpDir, []string{
		"individual.json",
		"project.yaml",
		"README.md",
		"metadata.schema.json",
		"Upper.JSON",
		"project/coreutils.yml",
		"project/deep/nested.json",
		".hidden/hidden.json",
		"demo/demo.json",
	})

	tests := []struct {
		name          string
		opts          ScanOptions
		wantFileNames []string
	}{
		{
			name:          "non-recursive scan",
			opts:          ScanOptions{},
			wantFileNames: []string{"README.md", "Upper.JSON", "individual.json", "metadata.schema.json", "project.yaml"},
		},
		{
			name: "recursive metadata scan",
			opts: ScanOptions{
				Extensions:      []string{".json", ".yaml", ".yml"},
				ExcludeSuffixes: []string{".schema.json"},
				Recursive:       true,
			},
			wantFileNames: []string{"Upper.JSON", "individual.json", "project.yaml", "demo.json", "coreutils.yml", "nested.json"},
		},
		{
			name: "extension without dot prefix",
			opts: ScanOptions{
				Extensions: []string{"yml"},
				Recursive:  true,
			},
			wantFileNames: []string{"coreutils.yml"},
		},
		{
			name: "exclude directory",
			opts: ScanOptions{
				Extensions:  []string{".json"},
				Recursive:   true,
				ExcludeDirs: []string{"demo"},
			},
			wantFileNames: []string{"Upper.JSON", "individual.json", "metadata.schema.json", "nested.json"},
		},
		{
			name: "max depth two",
			opts: ScanOptions{
				Extensions: []string{".json", ".yml"},
				Recursive:  true,
				MaxDepth:   2,
			},
			wantFileNames: []string{"Upper.JSON", "individual.json", "metadata.schema.json", "demo.json", "coreutils.yml"},
		},
		{
			name: "pattern on name without extension",
			opts: ScanOptions{
				Pattern:   "^proj",
				Recursive: true,
			},
			wantFileNames: []string{"project.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(tmpDir, tt.opts)
			if err != nil {
				t.Fatalf("ScanDirectory() error = %v", err)
			}
			if len(result.Errors) != 0 {
				t.Errorf("unexpected scan errors: %v", result.Errors)
			}

			gotMap := make(map[string]bool)
			for _, path := range result.Files {
				gotMap[filepath.Base(path)] = true
			}
			if len(gotMap) != len(tt.wantFileNames) {
				t.Errorf("file count = %d, want %d (got %v)", len(gotMap), len(tt.wantFileNames), result.Files)
			}
			for _, want := range tt.wantFileNames {
				if !gotMap[want] {
					t.Errorf("missing expected file: %s", want)
				}
			}
		})
	}
}

func TestScanDirectory_SortedAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"zebra.json", "apple.json", "b/mango.json"})

	result, err := ScanDirectory(tmpDir, ScanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("ScanDirectory() error = %v", err)
	}

	for _, f := range result.Files {
		if !filepath.IsAbs(f) {
			t.Errorf("expected absolute path, got %s", f)
		}
	}

	rel, err := result.RelativeFiles(tmpDir)
	if err != nil {
		t.Fatalf("RelativeFiles() error = %v", err)
	}
	want := []string{"apple.json", "b/mango.json", "zebra.json"}
	if strings.Join(rel, ",") != strings.Join(want, ",") {
		t.Errorf("RelativeFiles() = %v, want %v", rel, want)
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "file.txt")
	writeTree(t, tmpDir, []string{"file.txt"})

	tests := []struct {
		name    string
		dir     string
		opts    ScanOptions
		wantErr string
	}{
		{name: "missing directory", dir: filepath.Join(tmpDir, "nope"), wantErr: "failed to access directory"},
		{name: "path is a file", dir: filePath, wantErr: "path is not a directory"},
		{name: "invalid pattern", dir: tmpDir, opts: ScanOptions{Pattern: "[invalid"}, wantErr: "invalid pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScanDirectory(tt.dir, tt.opts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
