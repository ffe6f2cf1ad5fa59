// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package snapshot holds the read-only node arena shared by every indexing
// stage. A Snapshot is built once per run, validated, and never modified,
// so stages may read it concurrently without locking.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/integrity-engine/internal/similarity"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

var validate = validator.New()

// ValidationError reports a structurally invalid node. Index is the node's
// position in the input sequence.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid node at index %d: %s %s", e.Index, e.Field, e.Reason)
}

// Snapshot is an immutable, insertion-ordered arena of nodes indexed by ID.
type Snapshot struct {
	nodes   []types.Node
	index   map[string]int
	anchors []similarity.Set
}

// New validates nodes and copies them into a Snapshot. It fails on the first
// node that is missing an ID, has whitespace around its ID, or repeats an
// earlier ID. IDs are kept exactly as given. Anchors and themes are
// trimmed and deduplicated; the caller's slice is never retained.
func New(nodes []types.Node) (*Snapshot, error) {
	s := &Snapshot{
		nodes:   make([]types.Node, 0, len(nodes)),
		index:   make(map[string]int, len(nodes)),
		anchors: make([]similarity.Set, 0, len(nodes)),
	}

	for i, n := range nodes {
		if err := validateNode(i, n); err != nil {
			return nil, err
		}
		if _, dup := s.index[n.ID]; dup {
			return nil, &ValidationError{Index: i, Field: "id", Reason: fmt.Sprintf("duplicates %q", n.ID)}
		}

		c := n.Clone()
		c.Anchors = cleanTags(c.Anchors)
		c.Themes = cleanTags(c.Themes)

		s.index[c.ID] = len(s.nodes)
		s.nodes = append(s.nodes, c)
		s.anchors = append(s.anchors, similarity.NewSet(c.Anchors...))
	}

	return s, nil
}

// validateNode checks n without altering it. A blank ID counts as missing
// and an ID with surrounding whitespace is rejected.
func validateNode(i int, n types.Node) error {
	id := n.ID
	n.ID = strings.TrimSpace(id)
	err := validate.Struct(n)
	if err == nil {
		if n.ID != id {
			return &ValidationError{Index: i, Field: "id", Reason: fmt.Sprintf("%q has surrounding whitespace", id)}
		}
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Index: i, Field: strings.ToLower(fe.Field()), Reason: "is " + fe.Tag()}
	}
	return &ValidationError{Index: i, Field: "node", Reason: err.Error()}
}

// cleanTags trims tags, drops empties, and removes duplicates keeping the
// first occurrence.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int { return len(s.nodes) }

// At returns the node at insertion position i.
func (s *Snapshot) At(i int) types.Node { return s.nodes[i] }

// Get returns the node with the given ID.
func (s *Snapshot) Get(id string) (types.Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return types.Node{}, false
	}
	return s.nodes[i], true
}

// Has reports whether a node with the given ID exists.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Position returns the insertion position of id, or -1.
func (s *Snapshot) Position(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Anchors returns the anchor set of the node at position i. Callers must
// treat the set as read-only.
func (s *Snapshot) Anchors(i int) similarity.Set { return s.anchors[i] }

// AnchorsOf returns the anchor set of the node with the given ID.
func (s *Snapshot) AnchorsOf(id string) similarity.Set {
	if i, ok := s.index[id]; ok {
		return s.anchors[i]
	}
	return nil
}

// IDs returns node IDs in insertion order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Nodes returns deep copies of the nodes in insertion order.
func (s *Snapshot) Nodes() []types.Node {
	out := make([]types.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Fingerprint returns a hex sha256 of the canonical JSON encoding of the
// node sequence. Identical corpora produce identical fingerprints.
func (s *Snapshot) Fingerprint() string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, n := range s.nodes {
		// Node contains only strings and slices, so encoding cannot fail.
		_ = enc.Encode(n)
	}
	return hex.EncodeToString(h.Sum(nil))
}
