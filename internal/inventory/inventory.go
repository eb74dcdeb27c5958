// Package inventory counts the function and type definitions in extracted
// C and Rust sources using tree-sitter grammars.
package inventory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/harrison/paircorpus/internal/fileutil"
	"github.com/harrison/paircorpus/internal/models"
)

// DefaultCacheSize is the number of parsed files remembered by New(0).
const DefaultCacheSize = 4096

// grammar pairs a tree-sitter language with the query capturing its
// definitions. Captures must be named @function or @type.
type grammar struct {
	language *sitter.Language
	query    string
}

var grammars = map[models.Language]grammar{
	models.LanguageC: {
		language: c.GetLanguage(),
		query: `
			(function_definition) @function
			(type_definition) @type
			(struct_specifier body: (field_declaration_list)) @type
			(union_specifier body: (field_declaration_list)) @type
			(enum_specifier body: (enumerator_list)) @type
		`,
	},
	models.LanguageRust: {
		language: rust.GetLanguage(),
		query: `
			(function_item) @function
			(struct_item) @type
			(enum_item) @type
			(union_item) @type
			(type_item) @type
		`,
	},
}

// Counts holds the definitions found in one file.
type Counts struct {
	Functions int
	Types     int
}

// Inventory parses source files and caches per-content results.
type Inventory struct {
	queries map[models.Language]*sitter.Query
	cache   *lru.Cache[string, Counts]
}

// New compiles the queries and creates a parse cache holding size entries.
func New(size int) (*Inventory, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Counts](size)
	if err != nil {
		return nil, fmt.Errorf("create parse cache: %w", err)
	}

	inv := &Inventory{queries: make(map[models.Language]*sitter.Query), cache: cache}
	for lang, g := range grammars {
		q, err := sitter.NewQuery([]byte(g.query), g.language)
		if err != nil {
			inv.Close()
			return nil, fmt.Errorf("compile query for %s: %w", lang, err)
		}
		inv.queries[lang] = q
	}
	return inv, nil
}

// Close releases the compiled queries.
func (inv *Inventory) Close() {
	for _, q := range inv.queries {
		q.Close()
	}
	inv.queries = nil
}

// Scan counts definitions in the lang source files under dir. Files of the
// other language are ignored.
func (inv *Inventory) Scan(dir string, lang models.Language) (models.SourceInventory, error) {
	exts := lang.SourceExtensions()
	if len(exts) == 0 {
		return models.SourceInventory{}, fmt.Errorf("no source extensions for language %q", lang)
	}
	result, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{Extensions: exts, Recursive: true})
	if err != nil {
		return models.SourceInventory{}, err
	}
	if len(result.Errors) > 0 {
		return models.SourceInventory{}, result.Errors[0]
	}

	var total models.SourceInventory
	for _, path := range result.Files {
		src, err := os.ReadFile(path)
		if err != nil {
			return models.SourceInventory{}, fmt.Errorf("read %s: %w", path, err)
		}
		counts, err := inv.Count(lang, src)
		if err != nil {
			return models.SourceInventory{}, fmt.Errorf("parse %s: %w", path, err)
		}
		total.Files++
		total.Functions += counts.Functions
		total.Types += counts.Types
	}
	return total, nil
}

// Count parses src as lang and counts its definitions.
func (inv *Inventory) Count(lang models.Language, src []byte) (Counts, error) {
	q, ok := inv.queries[lang]
	if !ok {
		return Counts{}, fmt.Errorf("no grammar for language %q", lang)
	}

	key := cacheKey(lang, src)
	if counts, ok := inv.cache.Get(key); ok {
		return counts, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammars[lang].language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return Counts{}, err
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var counts Counts
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, capture := range m.Captures {
			switch q.CaptureNameForId(capture.Index) {
			case "function":
				counts.Functions++
			case "type":
				// typedef struct { ... } name; is one definition
				if parent := capture.Node.Parent(); parent != nil && parent.Type() == "type_definition" {
					continue
				}
				counts.Types++
			}
		}
	}

	inv.cache.Add(key, counts)
	return counts, nil
}

func cacheKey(lang models.Language, src []byte) string {
	sum := sha256.Sum256(src)
	return string(lang) + ":" + hex.EncodeToString(sum[:])
}
