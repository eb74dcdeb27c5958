package metadata

import (
	"fmt"

	"github.com/harrison/paircorpus/internal/models"
)

// Resolve turns one document into resolved pairs. Invalid records are
// skipped and reported; valid records in the same file are still returned.
// For project-form documents an invalid project_information yields no pairs.
func Resolve(doc Document) ([]models.ResolvedPair, []error) {
	pairs, verrs, merrs := resolveDocument(doc)
	var errs []error
	for _, e := range verrs {
		errs = append(errs, e)
	}
	for _, e := range merrs {
		errs = append(errs, e)
	}
	return pairs, errs
}

func resolveDocument(doc Document) ([]models.ResolvedPair, []*ValidationError, []*MergeError) {
	top := &checker{file: doc.Path, index: -1}
	top.unknownKeys(doc.Root, documentKeys, "")

	rawPairs, present := doc.Root[keyPairs]
	var entries []any
	switch {
	case !present:
		top.fail(child("", keyPairs), "is required")
	default:
		list, ok := rawPairs.([]any)
		if !ok {
			top.fail(child("", keyPairs), "must be an array")
		}
		entries = list
	}

	if doc.IsProject() {
		return resolveProject(doc, top, entries)
	}
	pairs, verrs := resolveIndividual(doc, entries)
	return pairs, append(top.errs, verrs...), nil
}

func resolveIndividual(doc Document, entries []any) ([]models.ResolvedPair, []*ValidationError) {
	var pairs []models.ResolvedPair
	var errs []*ValidationError

	for i, entry := range entries {
		c := &checker{file: doc.Path, index: i}
		pointer := fmt.Sprintf("/%s/%d", keyPairs, i)

		obj, ok := c.object(entry, pointer)
		if !ok {
			errs = append(errs, c.errs...)
			continue
		}

		pair := models.ResolvedPair{SourceFile: doc.Path, SourceIndex: i}
		pair.ProgramName = c.programName(obj, pointer)
		c.unknownKeys(obj, pairKeys, pointer)
		pair.ProgramDescription, _ = c.optionalString(obj, keyProgramDescription, pointer)
		pair.TranslationTools, _ = c.translationTools(obj, pointer, true)
		pair.FeatureRelationship, _ = c.featureRelationship(obj, pointer, true)

		for _, lang := range models.Languages {
			sidePointer := child(pointer, lang.MetadataKey())
			rawSide, present := obj[lang.MetadataKey()]
			if !present {
				c.fail(sidePointer, "is required")
				continue
			}
			side, ok := c.object(rawSide, sidePointer)
			if !ok {
				continue
			}
			c.unknownKeys(side, fullSideKeys, sidePointer)
			c.language(side, lang, sidePointer)

			src := pair.Side(lang)
			src.RepositoryURL = c.repositoryURL(side, sidePointer)
			src.DocumentationURL = c.documentationURL(side, sidePointer)
			paths, present := c.sourcePaths(side, sidePointer)
			if !present {
				c.fail(child(sidePointer, keySourcePaths), "must be a non-empty array")
			}
			src.SourcePaths = paths
		}

		if !c.ok() {
			errs = append(errs, c.errs...)
			continue
		}
		pairs = append(pairs, pair)
	}

	return pairs, errs
}

// projectGlobals is the validated project_information block.
type projectGlobals struct {
	translationTools    []string
	featureRelationship models.FeatureRelationship
	sides               map[models.Language]models.ProgramSource
}

func resolveProject(doc Document, top *checker, entries []any) ([]models.ResolvedPair, []*ValidationError, []*MergeError) {
	globals, ok := resolveProjectInformation(doc, top)

	var pairs []models.ResolvedPair
	verrs := top.errs
	var merrs []*MergeError

	for i, entry := range entries {
		c := &checker{file: doc.Path, index: i}
		pointer := fmt.Sprintf("/%s/%d", keyPairs, i)

		obj, isObj := c.object(entry, pointer)
		if !isObj {
			verrs = append(verrs, c.errs...)
			continue
		}

		pair := models.ResolvedPair{SourceFile: doc.Path, SourceIndex: i}
		pair.ProgramName = c.programName(obj, pointer)
		c.unknownKeys(obj, pairKeys, pointer)
		pair.ProgramDescription, _ = c.optionalString(obj, keyProgramDescription, pointer)

		tools, hasTools := c.translationTools(obj, pointer, false)
		rel, hasRel := c.featureRelationship(obj, pointer, false)

		var missing []models.Language
		for _, lang := range models.Languages {
			src := pair.Side(lang)
			*src = models.ProgramSource{}
			if ok {
				*src = globals.sides[lang]
			}

			sidePointer := child(pointer, lang.MetadataKey())
			rawSide, present := obj[lang.MetadataKey()]
			if !present {
				missing = append(missing, lang)
				continue
			}
			side, isObj := c.object(rawSide, sidePointer)
			if !isObj {
				continue
			}
			if _, hasURL := side[keyRepositoryURL]; hasURL {
				c.fail(child(sidePointer, keyRepositoryURL), "must be declared in project_information")
			}
			c.unknownKeys(side, localSideKeys, sidePointer)
			c.language(side, lang, sidePointer)

			if docURL := c.documentationURL(side, sidePointer); docURL != "" {
				src.DocumentationURL = docURL
			}
			paths, present := c.sourcePaths(side, sidePointer)
			if !present {
				missing = append(missing, lang)
				continue
			}
			src.SourcePaths = paths
		}

		if !c.ok() {
			verrs = append(verrs, c.errs...)
			continue
		}
		if len(missing) > 0 {
			for _, lang := range missing {
				merrs = append(merrs, &MergeError{
					File:        doc.Path,
					Index:       i,
					ProgramName: pair.ProgramName,
					Side:        lang,
					Err:         ErrMissingPaths,
				})
			}
			continue
		}
		if !ok {
			continue
		}

		pair.TranslationTools = append([]string(nil), globals.translationTools...)
		if hasTools {
			pair.TranslationTools = tools
		}
		pair.FeatureRelationship = globals.featureRelationship
		if hasRel {
			pair.FeatureRelationship = rel
		}
		pairs = append(pairs, pair)
	}

	return pairs, verrs, merrs
}

func resolveProjectInformation(doc Document, top *checker) (projectGlobals, bool) {
	pointer := child("", keyProjectInformation)
	before := len(top.errs)

	info, isObj := top.object(doc.Root[keyProjectInformation], pointer)
	if !isObj {
		return projectGlobals{}, false
	}

	// The project name is informational; pairs carry their own names.
	top.requiredString(info, keyProgramName, pointer)
	top.unknownKeys(info, pairKeys, pointer)
	top.optionalString(info, keyProgramDescription, pointer)

	globals := projectGlobals{sides: make(map[models.Language]models.ProgramSource)}
	globals.translationTools, _ = top.translationTools(info, pointer, true)
	globals.featureRelationship, _ = top.featureRelationship(info, pointer, true)

	for _, lang := range models.Languages {
		sidePointer := child(pointer, lang.MetadataKey())
		rawSide, present := info[lang.MetadataKey()]
		if !present {
			top.fail(sidePointer, "is required")
			continue
		}
		side, isObj := top.object(rawSide, sidePointer)
		if !isObj {
			continue
		}
		if _, hasPaths := side[keySourcePaths]; hasPaths {
			top.fail(child(sidePointer, keySourcePaths), "must be declared per pair, not in project_information")
		}
		top.unknownKeys(side, globalSideKeys, sidePointer)
		top.language(side, lang, sidePointer)
		globals.sides[lang] = models.ProgramSource{
			RepositoryURL:    top.repositoryURL(side, sidePointer),
			DocumentationURL: top.documentationURL(side, sidePointer),
		}
	}

	return globals, len(top.errs) == before
}
