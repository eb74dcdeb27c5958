package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents the encoding of a metadata file
type Format int

const (
	// FormatUnknown represents an unsupported file
	FormatUnknown Format = iota
	// FormatJSON represents a .json metadata file
	FormatJSON
	// FormatYAML represents a .yaml or .yml metadata file
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// DetectFormat detects the metadata format from the file extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// Document is one metadata file parsed into generic structured data.
type Document struct {
	Path string
	Root map[string]any
}

// IsProject reports whether the document uses the project form.
func (d Document) IsProject() bool {
	_, ok := d.Root[keyProjectInformation]
	return ok
}

// Decode reads and parses a metadata file. Structural validation is left to
// Validate and Resolve.
func Decode(path string) (Document, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return Document{}, fmt.Errorf("unknown metadata format: %s (supported: .json, .yaml, .yml)", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read metadata file: %w", err)
	}
	return DecodeBytes(path, data, format)
}

// DecodeBytes parses raw metadata content in the given format.
func DecodeBytes(path string, data []byte, format Format) (Document, error) {
	var root any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&root); err != nil {
			return Document{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if dec.More() {
			return Document{}, fmt.Errorf("failed to parse %s: trailing data after top-level value", path)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &root); err != nil {
			return Document{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported format: %v", format)
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return Document{}, fmt.Errorf("failed to parse %s: top-level value must be an object", path)
	}
	return Document{Path: path, Root: obj}, nil
}
