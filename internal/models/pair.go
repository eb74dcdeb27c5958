package models

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

// Language identifies one side of a program pair.
type Language string

const (
	LanguageC    Language = "c"
	LanguageRust Language = "rust"
)

// Languages lists both sides in output order.
var Languages = []Language{LanguageC, LanguageRust}

// OutputDir returns the per-pair directory name for this side ("c-program" or "rust-program").
func (l Language) OutputDir() string {
	return string(l) + "-program"
}

// MetadataKey returns the metadata field holding this side ("c_program" or "rust_program").
func (l Language) MetadataKey() string {
	return string(l) + "_program"
}

// DisplayName returns the human-readable language name.
func (l Language) DisplayName() string {
	switch l {
	case LanguageC:
		return "C"
	case LanguageRust:
		return "Rust"
	default:
		return string(l)
	}
}

// SourceExtensions returns the file extensions extracted from directories for this side.
func (l Language) SourceExtensions() []string {
	switch l {
	case LanguageC:
		return []string{".c", ".h"}
	case LanguageRust:
		return []string{".rs"}
	default:
		return nil
	}
}

// FeatureRelationship describes how the Rust program's features relate to the C program's.
type FeatureRelationship string

const (
	RelationshipSuperset    FeatureRelationship = "superset"
	RelationshipSubset      FeatureRelationship = "subset"
	RelationshipEquivalent  FeatureRelationship = "equivalent"
	RelationshipOverlapping FeatureRelationship = "overlapping"
)

// relationshipAliases maps the long metadata spellings onto the canonical values.
var relationshipAliases = map[string]FeatureRelationship{
	"superset":             RelationshipSuperset,
	"subset":               RelationshipSubset,
	"equivalent":           RelationshipEquivalent,
	"overlapping":          RelationshipOverlapping,
	"rust_superset_of_c":   RelationshipSuperset,
	"rust_subset_of_c":     RelationshipSubset,
	"rust_equivalent_to_c": RelationshipEquivalent,
}

// ParseFeatureRelationship parses a relationship value, accepting both the
// short form ("subset") and the long form ("rust_subset_of_c").
func ParseFeatureRelationship(s string) (FeatureRelationship, error) {
	if r, ok := relationshipAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown feature relationship %q", s)
}

// ProgramSource is one language side of a pair.
type ProgramSource struct {
	RepositoryURL    string   `json:"repository_url" yaml:"repository_url"`
	DocumentationURL string   `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
	SourcePaths      []string `json:"source_paths" yaml:"source_paths"`
}

// ResolvedPair is one program pair after global and local metadata have been merged.
type ResolvedPair struct {
	ProgramName         string              `json:"program_name" yaml:"program_name"`
	ProgramDescription  string              `json:"program_description,omitempty" yaml:"program_description,omitempty"`
	TranslationTools    []string            `json:"translation_tools" yaml:"translation_tools"`
	FeatureRelationship FeatureRelationship `json:"feature_relationship" yaml:"feature_relationship"`
	C                   ProgramSource       `json:"c_program" yaml:"c_program"`
	Rust                ProgramSource       `json:"rust_program" yaml:"rust_program"`

	// SourceFile and SourceIndex locate the record the pair was loaded from.
	SourceFile  string `json:"-" yaml:"-"`
	SourceIndex int    `json:"-" yaml:"-"`
}

// Side returns the program source for the given language.
func (p *ResolvedPair) Side(lang Language) *ProgramSource {
	if lang == LanguageC {
		return &p.C
	}
	return &p.Rust
}

// Validate checks the structural invariants of a resolved pair, including
// that its name is usable as an output directory.
func (p *ResolvedPair) Validate() error {
	if p.ProgramName == "" {
		return errors.New("program name is required")
	}
	if err := ValidateProgramName(p.ProgramName); err != nil {
		return fmt.Errorf("program name %q %w", p.ProgramName, err)
	}
	for _, lang := range Languages {
		side := p.Side(lang)
		if side.RepositoryURL == "" {
			return fmt.Errorf("%s repository url is required", lang.DisplayName())
		}
		if len(side.SourcePaths) == 0 {
			return fmt.Errorf("%s source paths are required", lang.DisplayName())
		}
	}
	return nil
}

// ValidateProgramName ensures name is usable as a single output directory.
func ValidateProgramName(name string) error {
	if name == "" {
		return errors.New("must not be empty")
	}
	if name != strings.TrimSpace(name) {
		return errors.New("must not have leading or trailing whitespace")
	}
	if strings.HasPrefix(name, ".") {
		return errors.New("must not start with '.'")
	}
	if strings.ContainsAny(name, `/\`) {
		return errors.New("must be a single path segment")
	}
	if len(name) > 255 {
		return errors.New("must be at most 255 bytes")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.New("must not contain control characters")
		}
	}
	if path.Clean(name) != name {
		return fmt.Errorf("invalid program name %q", name)
	}
	return nil
}

// RepositoryURLs returns the distinct repository URLs referenced by the pairs,
// in first-seen order.
func RepositoryURLs(pairs []ResolvedPair) []string {
	seen := make(map[string]bool)
	var urls []string
	for i := range pairs {
		for _, lang := range Languages {
			url := pairs[i].Side(lang).RepositoryURL
			if url == "" || seen[url] {
				continue
			}
			seen[url] = true
			urls = append(urls, url)
		}
	}
	return urls
}
