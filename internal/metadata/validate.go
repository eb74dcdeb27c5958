package metadata

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/harrison/paircorpus/internal/models"
)

const (
	keyPairs              = "pairs"
	keyProjectInformation = "project_information"
	keySchema             = "$schema"

	keyProgramName         = "program_name"
	keyProgramDescription  = "program_description"
	keyTranslationTools    = "translation_tools"
	keyFeatureRelationship = "feature_relationship"
	keyLanguage            = "language"
	keyDocumentationURL    = "documentation_url"
	keyRepositoryURL       = "repository_url"
	keySourcePaths         = "source_paths"
)

var (
	documentKeys = []string{keySchema, keyPairs, keyProjectInformation}
	pairKeys     = []string{keyProgramName, keyProgramDescription, keyTranslationTools, keyFeatureRelationship, "c_program", "rust_program"}
	fullSideKeys = []string{keyLanguage, keyDocumentationURL, keyRepositoryURL, keySourcePaths}

	// source_paths in project_information and repository_url in a project
	// pair are known but misplaced; they get a dedicated error.
	globalSideKeys = []string{keyLanguage, keyDocumentationURL, keyRepositoryURL, keySourcePaths}
	localSideKeys  = []string{keyLanguage, keyDocumentationURL, keySourcePaths, keyRepositoryURL}
)

// scpLikeURL matches git's scp-style addresses such as git@github.com:owner/repo.git
var scpLikeURL = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^\s]+$`)

var allowedURLSchemes = map[string]bool{
	"https": true,
	"http":  true,
	"git":   true,
	"ssh":   true,
	"file":  true,
}

// Validate checks every record in doc and returns all validation errors.
// Merge errors of project-form documents are reported by Resolve.
func Validate(doc Document) []*ValidationError {
	_, verrs, _ := resolveDocument(doc)
	return verrs
}

// checker accumulates validation errors for one record.
type checker struct {
	file  string
	index int
	name  string
	errs  []*ValidationError
}

func (c *checker) fail(pointer, format string, args ...any) {
	c.errs = append(c.errs, &ValidationError{
		File:        c.file,
		Index:       c.index,
		ProgramName: c.name,
		Pointer:     pointer,
		Message:     fmt.Sprintf(format, args...),
	})
}

func (c *checker) ok() bool {
	return len(c.errs) == 0
}

// child returns the JSON pointer of key under parent.
func child(parent, key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return parent + "/" + key
}

func (c *checker) object(v any, pointer string) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		c.fail(pointer, "must be an object")
		return nil, false
	}
	return obj, true
}

func (c *checker) unknownKeys(obj map[string]any, allowed []string, pointer string) {
	var unknown []string
	for key := range obj {
		if !slices.Contains(allowed, key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		c.fail(child(pointer, key), "unknown field")
	}
}

func (c *checker) requiredString(obj map[string]any, key, pointer string) string {
	v, present := obj[key]
	if !present {
		c.fail(child(pointer, key), "is required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.fail(child(pointer, key), "must be a string")
		return ""
	}
	if strings.TrimSpace(s) == "" {
		c.fail(child(pointer, key), "must not be empty")
		return ""
	}
	return s
}

func (c *checker) optionalString(obj map[string]any, key, pointer string) (string, bool) {
	v, present := obj[key]
	if !present || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		c.fail(child(pointer, key), "must be a string")
		return "", false
	}
	return s, true
}

// stringList reads an array of strings. present is false when the key is absent.
func (c *checker) stringList(obj map[string]any, key, pointer string) (list []string, present bool) {
	v, present := obj[key]
	if !present || v == nil {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		c.fail(child(pointer, key), "must be an array of strings")
		return nil, true
	}
	list = make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			c.fail(fmt.Sprintf("%s/%d", child(pointer, key), i), "must be a string")
			continue
		}
		list = append(list, s)
	}
	return list, true
}

func (c *checker) programName(obj map[string]any, pointer string) string {
	name := c.requiredString(obj, keyProgramName, pointer)
	if name == "" {
		return ""
	}
	if err := models.ValidateProgramName(name); err != nil {
		c.fail(child(pointer, keyProgramName), "%v", err)
		return ""
	}
	c.name = name
	return name
}

func (c *checker) translationTools(obj map[string]any, pointer string, required bool) ([]string, bool) {
	tools, present := c.stringList(obj, keyTranslationTools, pointer)
	if !present {
		if required {
			c.fail(child(pointer, keyTranslationTools), "is required")
		}
		return nil, false
	}
	for i, tool := range tools {
		if strings.TrimSpace(tool) == "" {
			c.fail(fmt.Sprintf("%s/%d", child(pointer, keyTranslationTools), i), "must not be empty")
		}
	}
	return tools, true
}

func (c *checker) featureRelationship(obj map[string]any, pointer string, required bool) (models.FeatureRelationship, bool) {
	raw, present := c.optionalString(obj, keyFeatureRelationship, pointer)
	if !present {
		if required {
			if _, exists := obj[keyFeatureRelationship]; !exists {
				c.fail(child(pointer, keyFeatureRelationship), "is required")
			}
		}
		return "", false
	}
	rel, err := models.ParseFeatureRelationship(raw)
	if err != nil {
		c.fail(child(pointer, keyFeatureRelationship), "%v (expected superset, subset, equivalent or overlapping)", err)
		return "", false
	}
	return rel, true
}

func (c *checker) language(obj map[string]any, lang models.Language, pointer string) {
	raw, present := c.optionalString(obj, keyLanguage, pointer)
	if present && !strings.EqualFold(raw, string(lang)) {
		c.fail(child(pointer, keyLanguage), "must be %q for %s", lang, lang.MetadataKey())
	}
}

func (c *checker) documentationURL(obj map[string]any, pointer string) string {
	raw, present := c.optionalString(obj, keyDocumentationURL, pointer)
	if !present || raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.fail(child(pointer, keyDocumentationURL), "must be an http(s) URL, got %q", raw)
		return ""
	}
	return raw
}

func (c *checker) repositoryURL(obj map[string]any, pointer string) string {
	raw := c.requiredString(obj, keyRepositoryURL, pointer)
	if raw == "" {
		return ""
	}
	if err := validateRepositoryURL(raw); err != nil {
		c.fail(child(pointer, keyRepositoryURL), "%v", err)
		return ""
	}
	return raw
}

// sourcePaths validates a source_paths list. present is false when the key
// is absent or the list is empty.
func (c *checker) sourcePaths(obj map[string]any, pointer string) (paths []string, present bool) {
	raw, present := c.stringList(obj, keySourcePaths, pointer)
	if !present {
		return nil, false
	}
	if raw == nil {
		// wrong type, already reported
		return nil, true
	}
	if len(raw) == 0 {
		return nil, false
	}
	listPointer := child(pointer, keySourcePaths)
	for i, p := range raw {
		cleaned, err := normalizeSourcePath(p)
		if err != nil {
			c.fail(fmt.Sprintf("%s/%d", listPointer, i), "%v", err)
			continue
		}
		paths = append(paths, cleaned)
	}
	return paths, true
}

// validateRepositoryURL accepts URLs git can clone: https, http, git, ssh,
// file, and scp-style user@host:path addresses.
func validateRepositoryURL(raw string) error {
	if strings.ContainsAny(raw, " \t\r\n") {
		return fmt.Errorf("must not contain whitespace")
	}
	if strings.HasPrefix(raw, "-") {
		return fmt.Errorf("must not start with '-'")
	}
	if scpLikeURL.MatchString(raw) && !strings.Contains(raw, "://") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %v", raw, err)
	}
	if !allowedURLSchemes[u.Scheme] {
		return fmt.Errorf("unsupported URL scheme %q (expected https, http, git, ssh, file or user@host:path)", u.Scheme)
	}
	if u.Scheme != "file" && u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	if u.Scheme == "file" && u.Path == "" {
		return fmt.Errorf("URL %q has no path", raw)
	}
	return nil
}

// normalizeSourcePath cleans a declared path and rejects anything that is
// absolute or escapes the repository root.
func normalizeSourcePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("must not be empty")
	}
	native := filepath.FromSlash(p)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("path %q must be relative to the repository root", p)
	}
	return filepath.ToSlash(filepath.Clean(native)), nil
}
