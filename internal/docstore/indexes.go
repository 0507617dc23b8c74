package docstore

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// IndexMode is how a composite index stores one field.
type IndexMode string

// Index modes.
const (
	ModeAsc      IndexMode = "asc"
	ModeDesc     IndexMode = "desc"
	ModeContains IndexMode = "contains"
)

// IndexField is one field of a composite index.
type IndexField struct {
	Path string    `yaml:"path"`
	Mode IndexMode `yaml:"mode"`
}

// IndexDef declares a composite index on a collection.
type IndexDef struct {
	Collection string       `yaml:"collection"`
	Fields     []IndexField `yaml:"fields"`
}

func (d IndexDef) String() string {
	parts := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		parts[i] = f.Path + " " + strings.ToUpper(string(f.Mode))
	}
	return d.Collection + " (" + strings.Join(parts, ", ") + ")"
}

// IndexSet is the set of declared composite indexes. Queries that combine
// fields in a way single-field indexes cannot serve must match one of them.
type IndexSet struct {
	mu   sync.RWMutex
	defs []IndexDef
}

// NewIndexSet creates a set holding defs.
func NewIndexSet(defs ...IndexDef) *IndexSet {
	s := &IndexSet{}
	for _, d := range defs {
		s.Add(d)
	}
	return s
}

// Add declares another index.
func (s *IndexSet) Add(d IndexDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = append(s.defs, d)
}

// Replace swaps every declaration for defs in one step. Queries already
// checked keep running; later ones see only defs.
func (s *IndexSet) Replace(defs []IndexDef) {
	defs = slices.Clone(defs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = defs
}

// ReloadFile replaces the declarations with those in a YAML index file and
// returns how many were loaded. On any read or parse error the current
// declarations stay in place.
func (s *IndexSet) ReloadFile(path string) (int, error) {
	loaded, err := LoadIndexFile(path)
	if err != nil {
		return 0, err
	}
	defs := loaded.Defs()
	s.Replace(defs)
	return len(defs), nil
}

// Defs returns a copy of the declared indexes.
func (s *IndexSet) Defs() []IndexDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.defs)
}

type indexFile struct {
	Indexes []IndexDef `yaml:"indexes"`
}

// LoadIndexFile reads index declarations from a YAML file:
//
//	indexes:
//	  - collection: questions
//	    fields:
//	      - {path: tags, mode: contains}
//	      - {path: createdAt, mode: desc}
func LoadIndexFile(path string) (*IndexSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return ParseIndexes(raw)
}

// ParseIndexes parses YAML index declarations.
func ParseIndexes(raw []byte) (*IndexSet, error) {
	var f indexFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse index file: %w", err)
	}
	for i, d := range f.Indexes {
		if err := validateCollection(d.Collection); err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		if len(d.Fields) < 2 {
			return nil, fmt.Errorf("index %d on %s: composite indexes need at least two fields", i, d.Collection)
		}
		for _, fld := range d.Fields {
			switch fld.Mode {
			case ModeAsc, ModeDesc, ModeContains:
			default:
				return nil, fmt.Errorf("index %d on %s: invalid mode %q for %s", i, d.Collection, fld.Mode, fld.Path)
			}
		}
	}
	return NewIndexSet(f.Indexes...), nil
}

// required returns the composite index a query needs, or nil when
// single-field indexes are enough. The count is the number of leading
// equality fields in the returned definition.
func required(c *compiled) (*IndexDef, int) {
	var eq []IndexField
	seen := map[string]bool{}
	for _, f := range c.Filters {
		if f.Op.inequality() || seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		mode := ModeAsc
		if f.Op == OpArrayContains || f.Op == OpArrayContainsAny {
			mode = ModeContains
		}
		eq = append(eq, IndexField{Path: f.Path, Mode: mode})
	}

	orders := c.orders()
	// A trailing id ordering rides along with every index.
	if n := len(orders); n > 0 && orders[n-1].Path == DocumentID {
		orders = orders[:n-1]
	}

	if len(orders) == 0 {
		return nil, 0
	}
	if len(orders) == 1 {
		onlyOrderField := true
		for _, f := range eq {
			if f.Path != orders[0].Path {
				onlyOrderField = false
				break
			}
		}
		if onlyOrderField {
			return nil, 0
		}
	}

	def := &IndexDef{Collection: c.Collection}
	def.Fields = append(def.Fields, eq...)
	for _, o := range orders {
		mode := ModeAsc
		if o.Direction == Desc {
			mode = ModeDesc
		}
		def.Fields = append(def.Fields, IndexField{Path: o.Path, Mode: mode})
	}
	return def, len(eq)
}

// covers reports whether a declared index serves the needed one. Equality
// fields may appear in any order; ordering fields must match exactly or be
// fully reversed.
func (s *IndexSet) covers(need *IndexDef, eqCount int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.defs {
		if d.Collection != need.Collection || len(d.Fields) != len(need.Fields) {
			continue
		}
		if !sameEqualityFields(d.Fields[:eqCount], need.Fields[:eqCount]) {
			continue
		}
		if orderFieldsMatch(d.Fields[eqCount:], need.Fields[eqCount:]) {
			return true
		}
	}
	return false
}

func sameEqualityFields(have, want []IndexField) bool {
	for _, w := range want {
		found := slices.ContainsFunc(have, func(h IndexField) bool {
			if h.Path != w.Path {
				return false
			}
			return (w.Mode == ModeContains) == (h.Mode == ModeContains)
		})
		if !found {
			return false
		}
	}
	return true
}

func orderFieldsMatch(have, want []IndexField) bool {
	exact, reversed := true, true
	for i := range want {
		if have[i].Path != want[i].Path || have[i].Mode == ModeContains {
			return false
		}
		if have[i].Mode != want[i].Mode {
			exact = false
		}
		if have[i].Mode == want[i].Mode {
			reversed = false
		}
	}
	return exact || reversed
}

// DefaultIndexes are the composite indexes askhub's own queries need.
func DefaultIndexes() *IndexSet {
	return NewIndexSet(
		IndexDef{Collection: "questions", Fields: []IndexField{
			{Path: "titleLowercase", Mode: ModeAsc}, {Path: "createdAt", Mode: ModeDesc},
		}},
		IndexDef{Collection: "questions", Fields: []IndexField{
			{Path: "tags", Mode: ModeContains}, {Path: "createdAt", Mode: ModeDesc},
		}},
		IndexDef{Collection: "questions", Fields: []IndexField{
			{Path: "userId", Mode: ModeAsc}, {Path: "createdAt", Mode: ModeDesc},
		}},
		IndexDef{Collection: "answers", Fields: []IndexField{
			{Path: "questionId", Mode: ModeAsc}, {Path: "upvotes", Mode: ModeDesc},
		}},
		IndexDef{Collection: "answers", Fields: []IndexField{
			{Path: "userId", Mode: ModeAsc}, {Path: "createdAt", Mode: ModeDesc},
		}},
		IndexDef{Collection: "comments", Fields: []IndexField{
			{Path: "parentId", Mode: ModeAsc}, {Path: "parentType", Mode: ModeAsc}, {Path: "createdAt", Mode: ModeAsc},
		}},
	)
}
