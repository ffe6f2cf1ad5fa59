// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package temporal extracts dated events from nodes, orders them into
// per-node timelines, and traces how anchors recur over time.
package temporal

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/integrity-engine/internal/snapshot"
	"github.com/pdiddy/integrity-engine/pkg/types"
)

// dateLayouts are tried in order when parsing metadata dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// isoDateRe matches YYYY-MM-DD dates embedded in prose.
var isoDateRe = regexp.MustCompile(`\b((?:1[5-9]|20)\d{2}-\d{2}-\d{2})\b`)

// ParseDate parses s with the first matching layout. All results are UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Index builds the temporal index of snap. Nodes without a parseable date
// contribute nothing; that is not an error.
func Index(snap *snapshot.Snapshot, cfg types.TemporalConfig) types.TemporalIndex {
	idx := types.TemporalIndex{
		NodeTimeline:     make(map[string][]types.TemporalEvent),
		PatternEvolution: make(map[string][]types.PatternOccurrence),
	}

	for i := 0; i < snap.Len(); i++ {
		events := nodeEvents(snap.At(i), cfg)
		if len(events) == 0 {
			continue
		}
		sortEvents(events)
		idx.NodeTimeline[snap.At(i).ID] = events
		idx.Chronology = append(idx.Chronology, events...)
	}
	sortEvents(idx.Chronology)

	idx.PatternEvolution = patternEvolution(snap, idx.Chronology)
	return idx
}

func nodeEvents(n types.Node, cfg types.TemporalConfig) []types.TemporalEvent {
	var events []types.TemporalEvent
	if ts, ok := ParseDate(n.Metadata.Date); ok {
		events = append(events, types.TemporalEvent{
			NodeID:    n.ID,
			Timestamp: ts,
			Label:     eventLabel(n),
			Source:    types.EventSourceMetadata,
		})
	}

	if cfg.ScanContent {
		seen := make(map[string]bool)
		for _, m := range isoDateRe.FindAllStringSubmatch(n.Content, -1) {
			if seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			ts, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				continue
			}
			events = append(events, types.TemporalEvent{
				NodeID:    n.ID,
				Timestamp: ts,
				Label:     eventLabel(n) + " (" + m[1] + ")",
				Source:    types.EventSourceContent,
			})
		}
	}
	return events
}

func eventLabel(n types.Node) string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// sortEvents orders events by timestamp, then node ID, then label.
func sortEvents(events []types.TemporalEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.NodeID != b.NodeID {
			return a.NodeID < b.NodeID
		}
		return a.Label < b.Label
	})
}

// patternEvolution groups the chronology by the anchors of each event's
// node. Anchors seen on fewer than two distinct nodes are omitted.
func patternEvolution(snap *snapshot.Snapshot, chronology []types.TemporalEvent) map[string][]types.PatternOccurrence {
	occurrences := make(map[string][]types.PatternOccurrence)
	nodesPerAnchor := make(map[string]map[string]bool)

	for _, ev := range chronology {
		n, ok := snap.Get(ev.NodeID)
		if !ok {
			continue
		}
		for _, a := range n.Anchors {
			occurrences[a] = append(occurrences[a], types.PatternOccurrence{
				Timestamp: ev.Timestamp,
				NodeID:    ev.NodeID,
			})
			if nodesPerAnchor[a] == nil {
				nodesPerAnchor[a] = make(map[string]bool)
			}
			nodesPerAnchor[a][ev.NodeID] = true
		}
	}

	out := make(map[string][]types.PatternOccurrence)
	for anchor, occ := range occurrences {
		if len(nodesPerAnchor[anchor]) < 2 {
			continue
		}
		out[anchor] = occ
	}
	return out
}
