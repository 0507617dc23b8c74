package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for question documents.
//
//  1. title and body are English-analyzed for stemmed text matches
//  2. title_lower is one keyword term so a prefix query behaves like the
//     store's title range
//  3. tags are keywords so compound tags like "c++" or "node.js" stay whole
//  4. numeric fields support recency and popularity tie-breaks
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	titleLowerFieldMapping := bleve.NewTextFieldMapping()
	titleLowerFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("title_lower", titleLowerFieldMapping)

	// Body is searchable but not stored (too large)
	bodyFieldMapping := bleve.NewTextFieldMapping()
	bodyFieldMapping.Analyzer = en.AnalyzerName
	bodyFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("body", bodyFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = simple.Name
	authorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	for _, field := range []string{"created_at", "views", "upvotes"} {
		numeric := bleve.NewNumericFieldMapping()
		numeric.Store = true
		docMapping.AddFieldMappingsAt(field, numeric)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
