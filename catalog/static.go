package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtin []byte

// Static is an immutable in-memory Catalog. Safe for concurrent use.
type Static struct {
	values map[string][]string
	index  map[string]map[string]struct{}
}

// NewStatic returns the built-in payment vocabulary.
func NewStatic() *Static {
	s, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		// The embedded catalog is fixed at build time.
		panic(fmt.Sprintf("catalog: embedded vocabulary invalid: %v", err))
	}
	return s
}

// Parse reads a YAML document mapping category names to value lists.
func Parse(r io.Reader) (*Static, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	s := &Static{
		values: make(map[string][]string, len(doc)),
		index:  make(map[string]map[string]struct{}, len(doc)),
	}
	for category, vals := range doc {
		if len(vals) == 0 {
			return nil, fmt.Errorf("parse catalog: category %q has no values", category)
		}
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			if v == "" {
				return nil, fmt.Errorf("parse catalog: category %q has an empty value", category)
			}
			if _, dup := set[v]; dup {
				return nil, fmt.Errorf("parse catalog: category %q lists %q twice", category, v)
			}
			set[v] = struct{}{}
		}
		s.values[category] = vals
		s.index[category] = set
	}
	return s, nil
}

func (s *Static) Contains(p Pair) bool {
	set, ok := s.index[p.Category]
	if !ok {
		return false
	}
	_, ok = set[p.Value]
	return ok
}

func (s *Static) Values(category string) ([]string, bool) {
	vals, ok := s.values[category]
	if !ok {
		return nil, false
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out, true
}

func (s *Static) Categories() []string {
	out := make([]string, 0, len(s.values))
	for c := range s.values {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
