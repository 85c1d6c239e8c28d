package replacer

import (
	"regexp"
	"sort"
	"strings"
)

// ZoneKind labels why a text span is protected from anchor insertion.
type ZoneKind string

const (
	ZoneFrontMatter  ZoneKind = "front_matter"
	ZoneFencedCode   ZoneKind = "fenced_code"
	ZoneInlineCode   ZoneKind = "inline_code"
	ZoneWikiLink     ZoneKind = "wiki_link"
	ZoneMarkdownLink ZoneKind = "markdown_link"
	ZoneHeading      ZoneKind = "heading"
	ZoneURL          ZoneKind = "url"
)

// Zone is a half-open byte range [Start, End) that must not be edited.
type Zone struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Kind  ZoneKind `json:"kind"`
}

var (
	zoneFencedRe  = regexp.MustCompile("(?s)```.*?```")
	zoneInlineRe  = regexp.MustCompile("`[^`\n]+`")
	zoneWikiRe    = regexp.MustCompile(`\[\[[^\]]*\]\]`)
	zoneMDLinkRe  = regexp.MustCompile(`!?\[[^\]]*\]\([^)]*\)`)
	zoneHeadingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t].*$`)
	zoneURLRe     = regexp.MustCompile(`https?://[^\s<>"\)]+`)
)

// ProtectedZones scans text once and returns every protected span, merged
// and sorted by position. Each zone class is found by an independent scan;
// overlapping spans are collapsed.
func ProtectedZones(text string) []Zone {
	var zones []Zone

	// Front matter counts only at the very start of the document.
	if strings.HasPrefix(text, "---\n") {
		if end := strings.Index(text[4:], "\n---"); end >= 0 {
			close := 4 + end + len("\n---")
			if close < len(text) && text[close] == '\n' {
				close++
			}
			zones = append(zones, Zone{Start: 0, End: close, Kind: ZoneFrontMatter})
		}
	}

	for _, loc := range zoneFencedRe.FindAllStringIndex(text, -1) {
		zones = append(zones, Zone{Start: loc[0], End: loc[1], Kind: ZoneFencedCode})
	}
	for _, loc := range zoneInlineRe.FindAllStringIndex(text, -1) {
		zones = append(zones, Zone{Start: loc[0], End: loc[1], Kind: ZoneInlineCode})
	}
	for _, loc := range zoneWikiRe.FindAllStringIndex(text, -1) {
		zones = append(zones, Zone{Start: loc[0], End: loc[1], Kind: ZoneWikiLink})
	}
	for _, loc := range zoneMDLinkRe.FindAllStringIndex(text, -1) {
		zones = append(zones, Zone{Start: loc[0], End: loc[1], Kind: ZoneMarkdownLink})
	}
	for _, loc := range zoneHeadingRe.FindAllStringIndex(text, -1) {
		zones = append(zones, Zone{Start: loc[0], End: loc[1], Kind: ZoneHeading})
	}
	for _, loc := range zoneURLRe.FindAllStringIndex(text, -1) {
		zones = append(zones, Zone{Start: loc[0], End: loc[1], Kind: ZoneURL})
	}

	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Start != zones[j].Start {
			return zones[i].Start < zones[j].Start
		}
		return zones[i].End > zones[j].End
	})
	return mergeZones(zones)
}

// mergeZones collapses overlapping or nested spans, keeping the kind of the
// earliest-starting zone. Zones are half-open, so a span starting exactly at
// the previous end is adjacent, not overlapping, and keeps its own kind.
func mergeZones(zones []Zone) []Zone {
	if len(zones) == 0 {
		return nil
	}
	merged := []Zone{zones[0]}
	for _, z := range zones[1:] {
		last := &merged[len(merged)-1]
		if z.Start < last.End {
			if z.End > last.End {
				last.End = z.End
			}
			continue
		}
		merged = append(merged, z)
	}
	return merged
}

// inZone reports whether [start, end) overlaps any protected zone.
func inZone(zones []Zone, start, end int) bool {
	for _, z := range zones {
		if start < z.End && end > z.Start {
			return true
		}
		if z.Start >= end {
			break
		}
	}
	return false
}
