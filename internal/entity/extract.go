// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entity extracts entity mentions from node text, canonicalizes them
// into entities, and derives relationships between entities that co-occur.
// Mention extraction is a Strategy so the heuristic can be swapped without
// touching canonicalization or the orchestrator.
package entity

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

// Extractor yields (surface form, approximate type, node ID) mentions for a
// node. Implementations must be deterministic and must not fail; a node with
// nothing recognizable returns nil.
type Extractor interface {
	Extract(node types.Node) []types.Mention
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(node types.Node) []types.Mention

// Extract calls f(node).
func (f ExtractorFunc) Extract(node types.Node) []types.Mention { return f(node) }

var (
	// sentenceSplitRe splits prose into sentences at terminal punctuation or
	// line breaks.
	sentenceSplitRe = regexp.MustCompile(`[.!?;:]+(?:\s+|$)|\n+`)

	// clauseSplitRe splits a sentence at commas, brackets, and quotes so a
	// span never crosses them.
	clauseSplitRe = regexp.MustCompile(`[,()\[\]"“”]+`)

	// tokenRe matches word tokens, keeping internal hyphens and apostrophes.
	tokenRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’\-]*`)
)

// connectors may appear inside a capitalized span ("Bureau of Investigation"),
// optionally followed by "the" ("Bureau of the Budget").
var connectors = map[string]bool{
	"of": true, "de": true, "for": true,
	"von": true, "van": true, "del": true, "la": true,
}

// leadingStopwords are sentence openers dropped from the front of a span.
var leadingStopwords = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "These": true, "Those": true,
	"That": true, "During": true, "In": true, "On": true, "At": true, "After": true,
	"Before": true, "When": true, "While": true, "Under": true, "By": true,
	"From": true, "With": true, "Since": true, "Through": true, "As": true,
	"If": true, "Its": true, "Their": true, "His": true, "Her": true, "Our": true,
}

// orgSuffixes mark a span as an organization by its final token.
var orgSuffixes = map[string]bool{
	"Agency": true, "Bureau": true, "Department": true, "Ministry": true,
	"Police": true, "Party": true, "Network": true, "Committee": true,
	"Council": true, "Institute": true, "University": true, "Company": true,
	"Corporation": true, "Inc": true, "Service": true, "Services": true,
	"Office": true, "Force": true, "Army": true, "Cartel": true,
	"Commission": true, "Group": true, "Directorate": true,
}

// PatternExtractor finds capitalized multi-token spans ("Operation
// Mockingbird", "Federal Bureau of Investigation") and acronym identifiers
// ("COINTELPRO") in a node's title and content.
type PatternExtractor struct{}

// Extract implements Extractor. Each distinct surface form is reported once
// per node, in order of first appearance.
func (PatternExtractor) Extract(node types.Node) []types.Mention {
	seen := make(map[string]bool)
	var mentions []types.Mention

	for _, text := range []string{node.Title, node.Content} {
		for _, sentence := range Sentences(text) {
			for _, sp := range spans(sentence) {
				if seen[sp.surface] {
					continue
				}
				seen[sp.surface] = true
				mentions = append(mentions, types.Mention{
					NodeID:      node.ID,
					SurfaceForm: sp.surface,
					EntityType:  sp.kind,
				})
			}
		}
	}
	return mentions
}

// Sentences splits text into trimmed, non-empty sentences.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type span struct {
	surface string
	kind    string
}

// spans scans one sentence for candidate mentions.
func spans(sentence string) []span {
	var out []span
	for _, clause := range clauseSplitRe.Split(sentence, -1) {
		out = append(out, clauseSpans(tokenRe.FindAllString(clause, -1))...)
	}
	return out
}

func clauseSpans(tokens []string) []span {
	var out []span

	for i := 0; i < len(tokens); {
		if !isCapitalized(tokens[i]) {
			i++
			continue
		}

		// Grow the span over capitalized tokens and connectors that are
		// followed by another capitalized token. Acronyms are names of their
		// own, so a connector never joins one.
		j := i + 1
		for j < len(tokens) {
			if isCapitalized(tokens[j]) {
				j++
				continue
			}
			if connectors[tokens[j]] && !isAcronym(tokens[j-1]) {
				k := j + 1
				if k < len(tokens) && tokens[k] == "the" {
					k++
				}
				if k < len(tokens) && isCapitalized(tokens[k]) && !isAcronym(tokens[k]) {
					j = k + 1
					continue
				}
			}
			break
		}

		words := tokens[i:j]
		for len(words) > 0 && leadingStopwords[words[0]] {
			words = words[1:]
		}
		if s, ok := classify(words); ok {
			out = append(out, s)
		}
		i = j
	}
	return out
}

// classify turns a span's tokens into a mention, or rejects it.
func classify(words []string) (span, bool) {
	switch {
	case len(words) == 0:
		return span{}, false
	case len(words) == 1:
		if isAcronym(words[0]) {
			return span{surface: words[0], kind: types.EntityOrganization}, true
		}
		return span{}, false
	}

	surface := strings.Join(words, " ")
	last := words[len(words)-1]
	switch {
	case words[0] == "Operation" || words[0] == "Project":
		return span{surface: surface, kind: types.EntityOperation}, true
	case orgSuffixes[last] || isAcronym(words[0]) || isAcronym(last):
		return span{surface: surface, kind: types.EntityOrganization}, true
	case len(words) == 2:
		return span{surface: surface, kind: types.EntityPerson}, true
	default:
		return span{surface: surface, kind: types.EntityConcept}, true
	}
}

func isCapitalized(tok string) bool {
	for _, r := range tok {
		return unicode.IsUpper(r)
	}
	return false
}

// isAcronym reports whether tok is two or more characters, all uppercase
// letters or digits, with at least two letters.
func isAcronym(tok string) bool {
	letters := 0
	for _, r := range tok {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsDigit(r):
		default:
			return false
		}
	}
	return letters >= 2
}
