// Package labels resolves organ/structure names from annotation filenames
// and assigns them integer class indices.
//
// Two strategies are provided behind the Resolver interface:
//   - a dynamic mapping built from the full set of filenames in a batch,
//     sorted before indices are assigned so the result does not depend on
//     directory enumeration order
//   - a static mapping supplied as a fixed {name: index} table
//
// Both return -1 for names they do not know.
package labels

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Unknown is the index returned for a label that is not in the mapping
const Unknown = -1

// Resolver maps a class label to its integer index
type Resolver interface {
	// Index returns the class index for label, or Unknown
	Index(label string) int

	// Names returns the known labels ordered by index
	Names() []string
}

// Mapping is an immutable name to index table
type Mapping struct {
	indices map[string]int
	names   []string
}

// ExtractLabel derives the class label from an annotation filename.
//
// The extension is removed from the first dot on, so double extensions such
// as ".mrk.json" disappear as a whole. A trailing "_<digits>" token marks one
// of several ROIs of the same class and is dropped. If a purely numeric token
// is still present (a patient or series id), the label is whatever follows
// the last such token. Otherwise the whole stem is the label.
//
// Examples:
//
//	Patient_002_liver_1.json -> liver
//	left_atrium_3.json       -> left_atrium
//	trachea.json             -> trachea
func ExtractLabel(filename string) string {
	stem := filepath.Base(filename)
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}

	tokens := strings.Split(stem, "_")
	if len(tokens) > 1 && isNumeric(tokens[len(tokens)-1]) {
		slog.Debug("Multi-ROI suffix detected", "file", filename, "suffix", tokens[len(tokens)-1])
		tokens = tokens[:len(tokens)-1]
	}

	last := -1
	for i, tok := range tokens {
		if isNumeric(tok) {
			last = i
		}
	}
	if last >= 0 && last < len(tokens)-1 {
		tokens = tokens[last+1:]
	}

	return strings.ToLower(strings.Join(tokens, "_"))
}

// isNumeric reports whether s is a non-empty run of ASCII digits
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// BuildMapping collects the labels of every filename, deduplicates and sorts
// them, and numbers them sequentially starting at base.
//
// The result depends only on the set of filenames, never on their order.
func BuildMapping(filenames []string, base int) *Mapping {
	seen := make(map[string]bool, len(filenames))
	names := make([]string, 0, len(filenames))
	for _, f := range filenames {
		label := ExtractLabel(f)
		if seen[label] {
			continue
		}
		seen[label] = true
		names = append(names, label)
	}
	sort.Strings(names)

	indices := make(map[string]int, len(names))
	for i, name := range names {
		indices[name] = base + i
	}
	return &Mapping{indices: indices, names: names}
}

// NewStaticMapping wraps a fixed {name: index} table. Names are lowercased
// so they compare equal to ExtractLabel output. Two names sharing an index
// are rejected.
func NewStaticMapping(table map[string]int) (*Mapping, error) {
	indices := make(map[string]int, len(table))
	owner := make(map[int]string, len(table))
	for name, idx := range table {
		key := strings.ToLower(name)
		if idx < 0 {
			return nil, fmt.Errorf("class %q has negative index %d", name, idx)
		}
		if prev, ok := indices[key]; ok && prev != idx {
			return nil, fmt.Errorf("class %q listed with indices %d and %d", key, prev, idx)
		}
		if prev, ok := owner[idx]; ok && prev != key {
			return nil, fmt.Errorf("classes %q and %q share index %d", prev, key, idx)
		}
		owner[idx] = key
		indices[key] = idx
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return indices[names[i]] < indices[names[j]]
	})
	return &Mapping{indices: indices, names: names}, nil
}

// Index returns the class index for label, or Unknown
func (m *Mapping) Index(label string) int {
	if idx, ok := m.indices[strings.ToLower(label)]; ok {
		return idx
	}
	return Unknown
}

// Names returns the labels ordered by index
func (m *Mapping) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of classes
func (m *Mapping) Len() int {
	return len(m.names)
}
