// Fixture builders for notes whose structure must survive a linking pass
// untouched: front matter, code, headings, existing links, and bare URLs.
package e2e

import (
	"fmt"
	"strings"
)

// ProtectedNote builds a note that mentions title inside every protected
// region and exactly once in plain prose. A correct linking pass rewrites
// only the prose occurrence. The pre-existing wiki link points at
// linkedTitle, a different note, so the title target itself stays linkable
// (a source never receives candidates it already links to).
func ProtectedNote(title, linkedTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nsubject: %s\ntags: [reading]\n---\n\n", title)
	b.WriteString("# Reading Log\n\n")
	fmt.Fprintf(&b, "Linked [[%s]] earlier; referenced [%s](https://example.com/%s) as a plain link.\n\n",
		linkedTitle, title, slug(title))
	fmt.Fprintf(&b, "```\nfetch %q\n```\n\n", title)
	fmt.Fprintf(&b, "Inline `%s` stays code. See https://notes.example.com/%s for context.\n\n",
		title, slug(title))
	fmt.Fprintf(&b, "The prose mention of %s is the only linkable one.\n", title)
	return b.String()
}

// CountMarkup returns how many times the exact wiki markup for title occurs.
func CountMarkup(text, title string) int {
	return strings.Count(text, "[["+title+"]]")
}

func slug(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}
